package dispatch

import (
	"context"
	"encoding/json"

	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	batchListKey  = "notify:batch"
	urgentListKey = "notify:urgent"
)

// Sink receives notification events as plain data. Message formatting,
// embeds, and mention syntax belong to the consumer on the other side.
type Sink interface {
	DeliverBatch(ctx context.Context, b Batch) error
	DeliverUrgent(ctx context.Context, n Notice) error
}

// RedisSink hands events to the downstream notifier over Redis lists.
type RedisSink struct{ rdb *r.Client }

func NewRedisSink(rdb *r.Client) *RedisSink { return &RedisSink{rdb} }

func (s *RedisSink) DeliverBatch(ctx context.Context, b Batch) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, batchListKey, payload).Err()
}

func (s *RedisSink) DeliverUrgent(ctx context.Context, n Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, urgentListKey, payload).Err()
}

// LogSink writes events to the log. Default when no notifier is wired up.
type LogSink struct{ log *zap.Logger }

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{log} }

func (s *LogSink) DeliverBatch(ctx context.Context, b Batch) error {
	for _, e := range b.Entries {
		s.log.Info("available username",
			zap.String("batch_id", b.ID),
			zap.String("username", e.Username),
			zap.String("color", string(e.Color)))
	}
	return nil
}

func (s *LogSink) DeliverUrgent(ctx context.Context, n Notice) error {
	s.log.Info("high-value username available",
		zap.String("username", n.Username),
		zap.Int("length", n.Length),
		zap.String("color", string(n.Color)))
	return nil
}
