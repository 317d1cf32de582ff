package analytics

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/model"
)

// RedisSink appends click events to a Redis stream for an external consumer.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink writes to stream, trimming it to roughly maxLen entries (0 = no trim)
func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Record implements Sink
func (s *RedisSink) Record(ctx context.Context, ev model.ClickEvent) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]any{
			"short_code": ev.ShortCode,
			"timestamp":  ev.Timestamp.UTC().Format(time.RFC3339Nano),
			"user_agent": ev.UserAgent,
			"ip_address": ev.IPAddress,
		},
	}).Err()
}

// LogSink writes click events to the log. Used when no Redis is configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Record implements Sink
func (s *LogSink) Record(ctx context.Context, ev model.ClickEvent) error {
	s.log.InfoContext(ctx, "click",
		"short_code", ev.ShortCode,
		"timestamp", ev.Timestamp.UTC().Format(time.RFC3339),
		"user_agent", ev.UserAgent,
		"ip_address", ev.IPAddress)
	return nil
}
