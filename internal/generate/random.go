package generate

import (
	"math/rand"
	"time"

	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/rules"
)

// Constraints bound candidate production to a length range. Weights bias the
// random mode's length choice; lengths with no weight fall back to uniform.
type Constraints struct {
	MinLength int
	MaxLength int
	Weights   map[int]float64
}

// Generator produces random rule-compliant candidates. Not safe for
// concurrent use; each pipeline owns its own.
type Generator struct {
	rng *rand.Rand
}

func New() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a deterministic generator for tests.
func NewSeeded(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// NextBatch draws up to n unique valid candidates. Uniqueness is local to the
// call; cross-cycle dedup is the cooldown store's job. The attempt cap keeps
// a pathological constraint from spinning forever.
func (g *Generator) NextBatch(n int, c Constraints) []domain.Candidate {
	out := make([]domain.Candidate, 0, n)
	seen := make(map[string]struct{}, n)
	for attempts := 0; len(out) < n && attempts < n*40; attempts++ {
		name := g.randomName(g.pickLength(c))
		if !rules.IsValid(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, domain.NewCandidate(name, domain.SourceRandom))
	}
	return out
}

func (g *Generator) randomName(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = rules.Alphabet[g.rng.Intn(len(rules.Alphabet))]
	}
	return string(b)
}

// pickLength draws a length from the clamped constraint range, weighted when
// any weight in range is positive.
func (g *Generator) pickLength(c Constraints) int {
	lo, hi := c.MinLength, c.MaxLength
	if lo < rules.MinLength {
		lo = rules.MinLength
	}
	if hi > rules.MaxLength {
		hi = rules.MaxLength
	}
	if hi < lo {
		hi = lo
	}
	if hi == lo {
		return lo
	}
	total := 0.0
	for l := lo; l <= hi; l++ {
		total += c.Weights[l]
	}
	if total <= 0 {
		return lo + g.rng.Intn(hi-lo+1)
	}
	r := g.rng.Float64() * total
	for l := lo; l <= hi; l++ {
		r -= c.Weights[l]
		if r < 0 {
			return l
		}
	}
	return hi
}
