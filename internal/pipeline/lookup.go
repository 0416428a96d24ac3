package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/generate"
	"github.com/Ghost-ify/Namite/internal/rules"
)

// Lookup serves on-demand checks: explicit user requests that bypass the
// periodic cycle and its cooldown skip, but never the rule engine.
type Lookup struct {
	cool Skipper
	chk  Checker
	log  *zap.Logger
	now  func() time.Time
}

func NewLookup(cool Skipper, chk Checker, log *zap.Logger) *Lookup {
	return &Lookup{cool: cool, chk: chk, log: log, now: time.Now}
}

// LookupResult pairs an outcome with its predicted chat color.
type LookupResult struct {
	Outcome domain.CheckOutcome
	Color   chatcolor.Color
}

// LookupNow checks one username immediately. A non-nil error means the name
// broke a rule and never reached the network; check failures come back inside
// the outcome's ErrorKind instead. Completed checks are recorded so the
// periodic cycle skips them afterwards.
func (l *Lookup) LookupNow(ctx context.Context, username string) (LookupResult, error) {
	cand := domain.NewCandidate(username, domain.SourceLookup)
	if err := rules.Validate(username); err != nil {
		return LookupResult{
			Outcome: domain.CheckOutcome{
				Candidate: cand,
				ErrorKind: domain.ErrorInvalid,
				Message:   err.Error(),
				CheckedAt: l.now(),
			},
			Color: chatcolor.Predict(username),
		}, err
	}

	oc := l.chk.Check(ctx, cand)
	if oc.Completed() {
		if err := l.cool.RecordResult(ctx, oc); err != nil {
			l.log.Warn("record lookup result",
				zap.String("username", username), zap.Error(err))
		}
	}
	return LookupResult{Outcome: oc, Color: chatcolor.Predict(username)}, nil
}

// HuntRequest asks for enumerated checks of one length, resuming after
// Cursor when set.
type HuntRequest struct {
	Length int    `json:"length"`
	Count  int    `json:"count"`
	Cursor string `json:"cursor"`
}

// HuntResult carries checked outcomes plus where to resume.
type HuntResult struct {
	Results    []LookupResult `json:"results"`
	NextCursor string         `json:"next_cursor"`
	Exhausted  bool           `json:"exhausted"`
}

const (
	defaultHuntCount = 10
	maxHuntCount     = 50
)

// HuntLength enumerates the next legal names of the requested length and runs
// them through the worker pool. Hunts bypass the cooldown skip the same way
// single lookups do; completed checks are still recorded.
func (l *Lookup) HuntLength(ctx context.Context, req HuntRequest) (HuntResult, error) {
	if req.Count <= 0 {
		req.Count = defaultHuntCount
	}
	if req.Count > maxHuntCount {
		req.Count = maxHuntCount
	}
	enum, err := generate.NewEnumerator(req.Length, req.Cursor)
	if err != nil {
		return HuntResult{}, err
	}

	cands := enum.NextBatch(req.Count)
	outcomes := l.chk.CheckAll(ctx, cands)

	res := HuntResult{
		Results:    make([]LookupResult, 0, len(outcomes)),
		NextCursor: enum.Cursor(),
		Exhausted:  len(cands) < req.Count,
	}
	for _, oc := range outcomes {
		if oc.Completed() {
			if err := l.cool.RecordResult(ctx, oc); err != nil {
				l.log.Warn("record hunt result",
					zap.String("username", oc.Candidate.Name), zap.Error(err))
			}
		}
		res.Results = append(res.Results, LookupResult{
			Outcome: oc,
			Color:   chatcolor.Predict(oc.Candidate.Name),
		})
	}
	return res, nil
}
