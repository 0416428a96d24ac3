package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
)

type Config struct {
	MaxSize         int
	MaxAge          time.Duration
	HighValueMaxLen int
}

// Batcher accumulates available outcomes into the single open batch, flushing
// on size immediately and on age when asked, and routes high-value finds
// straight to the sink.
type Batcher struct {
	mu   sync.Mutex
	open Batch

	sink Sink
	cfg  Config
	log  *zap.Logger
	now  func() time.Time
}

func NewBatcher(sink Sink, cfg Config, log *zap.Logger) *Batcher {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Minute
	}
	if cfg.HighValueMaxLen <= 0 {
		cfg.HighValueMaxLen = 4
	}
	b := &Batcher{sink: sink, cfg: cfg, log: log, now: time.Now}
	b.open = b.newBatch()
	return b
}

// Submit routes one available outcome. High-value lengths notify immediately;
// everything else joins the open batch, which flushes when full. Outcomes
// without an available verdict are ignored.
func (b *Batcher) Submit(ctx context.Context, oc domain.CheckOutcome, color chatcolor.Color) error {
	if !oc.Available || oc.ErrorKind != domain.ErrorNone {
		return nil
	}

	if oc.Candidate.Length <= b.cfg.HighValueMaxLen {
		err := b.sink.DeliverUrgent(ctx, Notice{
			Username:  oc.Candidate.Name,
			Length:    oc.Candidate.Length,
			Color:     color,
			ColorHex:  color.Hex(),
			CheckedAt: oc.CheckedAt,
			Mention:   true,
		})
		if err != nil {
			b.log.Error("urgent delivery failed",
				zap.String("username", oc.Candidate.Name), zap.Error(err))
		}
		return err
	}

	b.mu.Lock()
	b.open.Entries = append(b.open.Entries, Entry{
		Username:  oc.Candidate.Name,
		Length:    oc.Candidate.Length,
		Color:     color,
		ColorHex:  color.Hex(),
		CheckedAt: oc.CheckedAt,
	})
	var full *Batch
	if len(b.open.Entries) >= b.cfg.MaxSize {
		flushed := b.rotate()
		full = &flushed
	}
	b.mu.Unlock()

	if full != nil {
		return b.deliver(ctx, *full)
	}
	return nil
}

// FlushDue delivers the open batch once it has outlived the age threshold.
// Empty batches never flush. Reports whether a delivery happened.
func (b *Batcher) FlushDue(ctx context.Context) (bool, error) {
	b.mu.Lock()
	if len(b.open.Entries) == 0 || b.now().Sub(b.open.OpenedAt) < b.cfg.MaxAge {
		b.mu.Unlock()
		return false, nil
	}
	flushed := b.rotate()
	b.mu.Unlock()

	return true, b.deliver(ctx, flushed)
}

// rotate snapshots the open batch and opens a fresh one. Caller holds the
// lock, so submissions during delivery land in the new batch.
func (b *Batcher) rotate() Batch {
	flushed := b.open
	flushed.Flushed = true
	flushed.FlushedAt = b.now()
	b.open = b.newBatch()
	return flushed
}

func (b *Batcher) deliver(ctx context.Context, flushed Batch) error {
	if err := b.sink.DeliverBatch(ctx, flushed); err != nil {
		b.log.Error("batch delivery failed",
			zap.String("batch_id", flushed.ID),
			zap.Int("count", len(flushed.Entries)),
			zap.Error(err))
		return err
	}
	b.log.Info("batch delivered",
		zap.String("batch_id", flushed.ID),
		zap.Int("count", len(flushed.Entries)))
	return nil
}

func (b *Batcher) newBatch() Batch {
	return Batch{ID: uuid.NewString(), OpenedAt: b.now()}
}
