package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
)

func TestLookupNowInvalidNameNeverChecks(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.LookupNow(context.Background(), "ab__c")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorInvalid, res.Outcome.ErrorKind)
	assert.Contains(t, res.Outcome.Message, "underscore")
	assert.Empty(t, chk.checkedNames())
	assert.Empty(t, cool.recorded)
}

func TestLookupNowBypassesCooldown(t *testing.T) {
	cool := newFakeSkipper()
	cool.skip["abc"] = true // would be skipped by the periodic cycle
	chk := newFakeChecker()
	chk.available["abc"] = true
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.LookupNow(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, chk.checkedNames())
	assert.True(t, res.Outcome.Available)
	assert.Equal(t, chatcolor.Orange, res.Color)
	assert.Equal(t, domain.SourceLookup, res.Outcome.Candidate.Source)
	// The fresh verdict still lands in the cooldown store.
	assert.Equal(t, []string{"abc"}, cool.recorded)
}

func TestLookupNowSkipsRecordOnFailure(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	chk.kinds["abc"] = domain.ErrorRateLimited
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.LookupNow(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.ErrorRateLimited, res.Outcome.ErrorKind)
	assert.Empty(t, cool.recorded)
}

func TestHuntLengthChecksEnumeratedNames(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	chk.available["00C"] = true
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.HuntLength(context.Background(), HuntRequest{Length: 3, Count: 5})
	require.NoError(t, err)
	require.Len(t, res.Results, 5)
	assert.Equal(t, []string{"00A", "00B", "00C", "00D", "00E"}, chk.checkedNames())
	assert.Equal(t, "00E", res.NextCursor)
	assert.False(t, res.Exhausted)
	assert.Len(t, cool.recorded, 5)

	for _, lr := range res.Results {
		assert.Equal(t, chatcolor.Predict(lr.Outcome.Candidate.Name), lr.Color)
	}
}

func TestHuntLengthResumesFromCursor(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	l := NewLookup(cool, chk, zap.NewNop())

	first, err := l.HuntLength(context.Background(), HuntRequest{Length: 3, Count: 3})
	require.NoError(t, err)

	second, err := l.HuntLength(context.Background(), HuntRequest{Length: 3, Count: 3, Cursor: first.NextCursor})
	require.NoError(t, err)

	assert.Equal(t, []string{"00A", "00B", "00C", "00D", "00E", "00F"}, chk.checkedNames())
	assert.Equal(t, "00F", second.NextCursor)
}

func TestHuntLengthRejectsBadRequest(t *testing.T) {
	l := NewLookup(newFakeSkipper(), newFakeChecker(), zap.NewNop())

	_, err := l.HuntLength(context.Background(), HuntRequest{Length: 2})
	assert.Error(t, err)

	_, err = l.HuntLength(context.Background(), HuntRequest{Length: 3, Cursor: "wrong-length"})
	assert.Error(t, err)
}

func TestHuntLengthCapsCount(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.HuntLength(context.Background(), HuntRequest{Length: 3, Count: 500})
	require.NoError(t, err)
	assert.Len(t, res.Results, maxHuntCount)
}

func TestHuntLengthReportsExhaustion(t *testing.T) {
	cool := newFakeSkipper()
	chk := newFakeChecker()
	l := NewLookup(cool, chk, zap.NewNop())

	res, err := l.HuntLength(context.Background(), HuntRequest{Length: 3, Count: 10, Cursor: "zzy"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "zzz", res.Results[0].Outcome.Candidate.Name)
	assert.True(t, res.Exhausted)
}
