package queue

import (
	"context"
	"fmt"
	"time"

	r "github.com/redis/go-redis/v9"
)

const delayKey = "retry:candidates"

// RetryQueue parks rate-limited candidates until a later cycle. Members are
// scored by the unix time they become due, so draining is one range read.
type RetryQueue struct{ rdb *r.Client }

func New(rdb *r.Client) *RetryQueue { return &RetryQueue{rdb} }

// Defer schedules username to re-enter a cycle at due. Re-deferring moves the
// existing entry.
func (q *RetryQueue) Defer(ctx context.Context, username string, due time.Time) error {
	return q.rdb.ZAdd(ctx, delayKey, r.Z{Score: float64(due.Unix()), Member: username}).Err()
}

// Due pops up to limit usernames whose defer time has passed.
func (q *RetryQueue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	names, err := q.rdb.ZRangeByScore(ctx, delayKey, &r.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.Unix()),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil || len(names) == 0 {
		return nil, err
	}
	pipe := q.rdb.TxPipeline()
	for _, name := range names {
		pipe.ZRem(ctx, delayKey, name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return names, nil
}
