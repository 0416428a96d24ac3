package domain

import "time"

// Source records how a candidate entered the pipeline.
type Source string

const (
	SourceRandom     Source = "random"
	SourceEnumerated Source = "enumerated"
	SourceLookup     Source = "lookup"
)

// ErrorKind classifies why a check produced no verdict. ErrorNone means the
// platform answered with a definitive available/taken.
type ErrorKind string

const (
	ErrorNone        ErrorKind = "none"
	ErrorRateLimited ErrorKind = "rate_limited"
	ErrorInvalid     ErrorKind = "invalid"
	ErrorTransient   ErrorKind = "transient"
)

// Candidate is a username string queued for an availability check. Immutable
// once produced.
type Candidate struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
	Source Source `json:"source"`
}

func NewCandidate(name string, source Source) Candidate {
	return Candidate{Name: name, Length: len(name), Source: source}
}

// CheckOutcome is the result of one check attempt. Code and Message carry the
// platform's reason verbatim when the name is taken.
type CheckOutcome struct {
	Candidate  Candidate `json:"candidate"`
	Available  bool      `json:"available"`
	StatusCode int       `json:"status_code,omitempty"`
	Code       int       `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Completed reports whether the platform returned a verdict.
func (o CheckOutcome) Completed() bool { return o.ErrorKind == ErrorNone }

// CooldownRecord mirrors one row of checked_usernames: the most recent check
// of a username. Overwritten on recheck, never appended.
type CooldownRecord struct {
	Username   string    `json:"username"`
	CheckedAt  time.Time `json:"checked_at"`
	Available  bool      `json:"available"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
}

// Record converts a completed outcome into its cooldown row.
func (o CheckOutcome) Record() CooldownRecord {
	return CooldownRecord{
		Username:   o.Candidate.Name,
		CheckedAt:  o.CheckedAt,
		Available:  o.Available,
		StatusCode: o.StatusCode,
		Message:    o.Message,
	}
}
