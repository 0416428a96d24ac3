package stats

import (
	"context"
	"strconv"
	"time"

	r "github.com/redis/go-redis/v9"

	"github.com/Ghost-ify/Namite/internal/dispatch"
)

const (
	checkedKey   = "stats:checked"
	availableKey = "stats:available"
	urgentKey    = "stats:urgent"
	batchesKey   = "stats:batches"
	startedKey   = "stats:started_at"
)

// Cmds is the slice of the redis client the recorder uses; *redis.Client
// satisfies it.
type Cmds interface {
	IncrBy(ctx context.Context, key string, value int64) *r.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd
	MGet(ctx context.Context, keys ...string) *r.SliceCmd
}

// Recorder keeps run counters in Redis so the api process can serve the
// hunter's numbers.
type Recorder struct{ rdb Cmds }

func NewRecorder(rdb Cmds) *Recorder { return &Recorder{rdb} }

// MarkStarted stores the first start time; later restarts keep the original.
func (rec *Recorder) MarkStarted(ctx context.Context, at time.Time) error {
	return rec.rdb.SetNX(ctx, startedKey, at.Unix(), 0).Err()
}

func (rec *Recorder) AddChecked(ctx context.Context, n int64) error {
	return rec.rdb.IncrBy(ctx, checkedKey, n).Err()
}

func (rec *Recorder) AddAvailable(ctx context.Context, n int64) error {
	return rec.rdb.IncrBy(ctx, availableKey, n).Err()
}

// Stats is one snapshot of the counters.
type Stats struct {
	TotalChecked   int64     `json:"total_checked"`
	AvailableFound int64     `json:"available_found"`
	UrgentSent     int64     `json:"urgent_sent"`
	BatchesSent    int64     `json:"batches_sent"`
	SuccessRate    float64   `json:"success_rate"`
	StartedAt      time.Time `json:"started_at"`
}

// Snapshot reads every counter in one round trip.
func (rec *Recorder) Snapshot(ctx context.Context) (Stats, error) {
	vals, err := rec.rdb.MGet(ctx, checkedKey, availableKey, urgentKey, batchesKey, startedKey).Result()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		TotalChecked:   asInt(vals[0]),
		AvailableFound: asInt(vals[1]),
		UrgentSent:     asInt(vals[2]),
		BatchesSent:    asInt(vals[3]),
	}
	if ts := asInt(vals[4]); ts > 0 {
		s.StartedAt = time.Unix(ts, 0).UTC()
	}
	if s.TotalChecked > 0 {
		s.SuccessRate = float64(s.AvailableFound) / float64(s.TotalChecked)
	}
	return s, nil
}

func asInt(v interface{}) int64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CountingSink wraps a delivery sink and counts what passes through it.
// Counter failures never fail a delivery.
type CountingSink struct {
	next dispatch.Sink
	rec  *Recorder
}

func NewCountingSink(next dispatch.Sink, rec *Recorder) *CountingSink {
	return &CountingSink{next: next, rec: rec}
}

func (s *CountingSink) DeliverBatch(ctx context.Context, b dispatch.Batch) error {
	if err := s.next.DeliverBatch(ctx, b); err != nil {
		return err
	}
	s.rec.rdb.IncrBy(ctx, batchesKey, 1)
	return nil
}

func (s *CountingSink) DeliverUrgent(ctx context.Context, n dispatch.Notice) error {
	if err := s.next.DeliverUrgent(ctx, n); err != nil {
		return err
	}
	s.rec.rdb.IncrBy(ctx, urgentKey, 1)
	return nil
}
