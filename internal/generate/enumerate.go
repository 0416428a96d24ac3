package generate

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/rules"
)

// Enumerator walks every legal username of one fixed length in ascending
// alphabet order, silently skipping rule violations. Resumable: the cursor is
// the last name emitted, and a new enumerator built from it continues right
// after.
type Enumerator struct {
	length    int
	digits    []int
	last      string
	exhausted bool
}

// NewEnumerator starts at the beginning of the keyspace for length, or just
// past cursor when one is given.
func NewEnumerator(length int, cursor string) (*Enumerator, error) {
	if length < rules.MinLength || length > rules.MaxLength {
		return nil, errors.Errorf("enumeration length must be between %d and %d", rules.MinLength, rules.MaxLength)
	}
	e := &Enumerator{length: length, digits: make([]int, length)}
	if cursor != "" {
		if len(cursor) != length {
			return nil, errors.Errorf("cursor %q does not match length %d", cursor, length)
		}
		for i := 0; i < len(cursor); i++ {
			pos := strings.IndexByte(rules.Alphabet, cursor[i])
			if pos < 0 {
				return nil, errors.Errorf("cursor %q contains characters outside the alphabet", cursor)
			}
			e.digits[i] = pos
		}
		e.advance()
	}
	return e, nil
}

// Next returns the next valid candidate, or ok=false once the keyspace is
// exhausted.
func (e *Enumerator) Next() (domain.Candidate, bool) {
	for !e.exhausted {
		name := e.render()
		e.advance()
		if rules.IsValid(name) {
			e.last = name
			return domain.NewCandidate(name, domain.SourceEnumerated), true
		}
	}
	return domain.Candidate{}, false
}

// NextBatch collects up to n candidates. A short batch means the keyspace ran
// out.
func (e *Enumerator) NextBatch(n int) []domain.Candidate {
	out := make([]domain.Candidate, 0, n)
	for len(out) < n {
		cand, ok := e.Next()
		if !ok {
			break
		}
		out = append(out, cand)
	}
	return out
}

// Cursor reports the last emitted name, for resuming a later enumeration.
// Empty until the first emission.
func (e *Enumerator) Cursor() string { return e.last }

func (e *Enumerator) render() string {
	b := make([]byte, e.length)
	for i, pos := range e.digits {
		b[i] = rules.Alphabet[pos]
	}
	return string(b)
}

// advance increments the rightmost position, carrying left; overflowing the
// leftmost position ends the walk.
func (e *Enumerator) advance() {
	for i := e.length - 1; i >= 0; i-- {
		e.digits[i]++
		if e.digits[i] < len(rules.Alphabet) {
			return
		}
		e.digits[i] = 0
	}
	e.exhausted = true
}
