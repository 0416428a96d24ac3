package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
)

type fakeSink struct {
	mu      sync.Mutex
	batches []Batch
	notices []Notice
	err     error
}

func (f *fakeSink) DeliverBatch(ctx context.Context, b Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeSink) DeliverUrgent(ctx context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notices = append(f.notices, n)
	return nil
}

func availableOutcome(name string, at time.Time) domain.CheckOutcome {
	return domain.CheckOutcome{
		Candidate: domain.NewCandidate(name, domain.SourceRandom),
		Available: true,
		ErrorKind: domain.ErrorNone,
		CheckedAt: at,
	}
}

func newTestBatcher(sink Sink) (*Batcher, *time.Time) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBatcher(sink, Config{MaxSize: 3, MaxAge: 5 * time.Minute, HighValueMaxLen: 4}, zap.NewNop())
	b.now = func() time.Time { return at }
	// Reset the open batch so it carries the fake clock's timestamp.
	b.open = b.newBatch()
	return b, &at
}

func TestHighValueBypassesBatch(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)
	ctx := context.Background()

	require.NoError(t, b.Submit(ctx, availableOutcome("QJ9", *now), chatcolor.Green))

	require.Len(t, sink.notices, 1)
	assert.Equal(t, "QJ9", sink.notices[0].Username)
	assert.Equal(t, chatcolor.Green, sink.notices[0].Color)
	assert.Equal(t, "#02B857", sink.notices[0].ColorHex)
	assert.True(t, sink.notices[0].Mention)
	assert.Empty(t, sink.batches)
	assert.Empty(t, b.open.Entries)
}

func TestBatchFlushesAtMaxSize(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)
	ctx := context.Background()

	require.NoError(t, b.Submit(ctx, availableOutcome("first1", *now), chatcolor.Red))
	require.NoError(t, b.Submit(ctx, availableOutcome("second", *now), chatcolor.Blue))
	assert.Empty(t, sink.batches)

	require.NoError(t, b.Submit(ctx, availableOutcome("third1", *now), chatcolor.Pink))
	require.Len(t, sink.batches, 1)

	got := sink.batches[0]
	assert.True(t, got.Flushed)
	assert.NotEmpty(t, got.ID)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, "first1", got.Entries[0].Username)
	assert.Equal(t, "second", got.Entries[1].Username)
	assert.Equal(t, "third1", got.Entries[2].Username)

	// The next submission opens a fresh batch.
	require.NoError(t, b.Submit(ctx, availableOutcome("fourth", *now), chatcolor.Red))
	assert.Len(t, sink.batches, 1)
	assert.Len(t, b.open.Entries, 1)
	assert.NotEqual(t, got.ID, b.open.ID)
}

func TestFlushDueRespectsAge(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)
	ctx := context.Background()

	require.NoError(t, b.Submit(ctx, availableOutcome("early1", *now), chatcolor.Red))

	*now = now.Add(4 * time.Minute)
	flushed, err := b.FlushDue(ctx)
	require.NoError(t, err)
	assert.False(t, flushed)
	assert.Empty(t, sink.batches)

	*now = now.Add(2 * time.Minute)
	flushed, err = b.FlushDue(ctx)
	require.NoError(t, err)
	assert.True(t, flushed)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0].Entries, 1)
}

func TestFlushDueSkipsEmptyBatch(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)

	*now = now.Add(time.Hour)
	flushed, err := b.FlushDue(context.Background())
	require.NoError(t, err)
	assert.False(t, flushed)
	assert.Empty(t, sink.batches)
}

func TestSubmitIgnoresNonAvailable(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)
	ctx := context.Background()

	taken := availableOutcome("longername", *now)
	taken.Available = false
	require.NoError(t, b.Submit(ctx, taken, chatcolor.Red))

	failed := availableOutcome("longer2", *now)
	failed.ErrorKind = domain.ErrorTransient
	require.NoError(t, b.Submit(ctx, failed, chatcolor.Red))

	assert.Empty(t, b.open.Entries)
	assert.Empty(t, sink.notices)
	assert.Empty(t, sink.batches)
}

func TestSubmitSurfacesUrgentDeliveryError(t *testing.T) {
	sink := &fakeSink{err: errors.New("redis down")}
	b, now := newTestBatcher(sink)

	err := b.Submit(context.Background(), availableOutcome("abc", *now), chatcolor.Orange)
	assert.Error(t, err)
}

func TestBatchEntryCarriesColor(t *testing.T) {
	sink := &fakeSink{}
	b, now := newTestBatcher(sink)
	ctx := context.Background()

	require.NoError(t, b.Submit(ctx, availableOutcome("purple", *now), chatcolor.Purple))
	require.Len(t, b.open.Entries, 1)
	assert.Equal(t, chatcolor.Purple, b.open.Entries[0].Color)
	assert.Equal(t, "#6B327C", b.open.Entries[0].ColorHex)
	assert.Equal(t, *now, b.open.Entries[0].CheckedAt)
}
