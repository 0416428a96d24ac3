package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/rules"
)

func TestNextBatchProducesValidUniqueCandidates(t *testing.T) {
	g := NewSeeded(1)
	cands := g.NextBatch(200, Constraints{MinLength: 3, MaxLength: 6})
	require.Len(t, cands, 200)

	seen := make(map[string]bool)
	for _, cand := range cands {
		assert.True(t, rules.IsValid(cand.Name), cand.Name)
		assert.False(t, seen[cand.Name], cand.Name)
		seen[cand.Name] = true
		assert.Equal(t, domain.SourceRandom, cand.Source)
		assert.Equal(t, len(cand.Name), cand.Length)
		assert.GreaterOrEqual(t, cand.Length, 3)
		assert.LessOrEqual(t, cand.Length, 6)
	}
}

func TestNextBatchFixedLength(t *testing.T) {
	g := NewSeeded(2)
	for _, cand := range g.NextBatch(50, Constraints{MinLength: 4, MaxLength: 4}) {
		assert.Equal(t, 4, cand.Length)
	}
}

func TestNextBatchWeightsBiasLength(t *testing.T) {
	g := NewSeeded(3)
	// All weight on length 3 pins every draw to it.
	cands := g.NextBatch(50, Constraints{MinLength: 3, MaxLength: 6, Weights: map[int]float64{3: 1}})
	require.NotEmpty(t, cands)
	for _, cand := range cands {
		assert.Equal(t, 3, cand.Length)
	}
}

func TestNextBatchClampsRange(t *testing.T) {
	g := NewSeeded(4)
	for _, cand := range g.NextBatch(50, Constraints{MinLength: 1, MaxLength: 2}) {
		assert.Equal(t, rules.MinLength, cand.Length)
	}
}

func TestSeededGeneratorIsDeterministic(t *testing.T) {
	a := NewSeeded(7).NextBatch(20, Constraints{MinLength: 3, MaxLength: 5})
	b := NewSeeded(7).NextBatch(20, Constraints{MinLength: 3, MaxLength: 5})
	assert.Equal(t, a, b)
}
