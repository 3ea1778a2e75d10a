package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/constants"
)

// RedisSink implements amm.EventRecorder over a capped Redis list plus a
// pub/sub fanout, mirroring the teacher's RedisCache/PubSubManager pair
// generalized to one event shape.
type RedisSink struct {
	client *redis.Client
	logger *logrus.Logger
}

// RedisConfig holds the connection settings for RedisSink.
type RedisConfig struct {
	Addr   string
	Logger *logrus.Logger
}

// NewRedisSink dials Redis and verifies connectivity before returning.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: 0})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to Redis")
	return NewRedisSinkFromClient(client, cfg.Logger), nil
}

// NewRedisSinkFromClient wraps an already-constructed client, used by tests
// and by callers sharing one client across the account store and the
// event-log pipeline.
func NewRedisSinkFromClient(client *redis.Client, logger *logrus.Logger) *RedisSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisSink{client: client, logger: logger}
}

// Record implements amm.EventRecorder: push to the capped recent-events
// list, publish for live subscribers, and log at Info level. Redis errors
// are returned to the caller — Processor.emit swallows them, since the
// event log never gates or reverts an instruction (SPEC_FULL.md §4.8).
func (r *RedisSink) Record(ctx context.Context, ev amm.Event) error {
	rec := newEventRecord(ev, time.Now().UTC())
	data, err := rec.marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentEvents, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentEvents, 0, int64(constants.MaxRecentEvents-1))
	pipe.Publish(ctx, constants.PubSubChannelEvents, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"opcode": ev.Opcode,
		"pool":   rec.Pool,
	}).Info("recorded instruction event")

	return nil
}

// GetRecent returns up to limit of the most recently recorded events, newest
// first.
func (r *RedisSink) GetRecent(ctx context.Context, limit int64) ([]EventRecord, error) {
	if limit <= 0 {
		limit = constants.MaxRecentEvents
	}
	data, err := r.client.LRange(ctx, constants.RedisKeyRecentEvents, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent events: %w", err)
	}

	out := make([]EventRecord, 0, len(data))
	for _, d := range data {
		var rec EventRecord
		if err := json.Unmarshal([]byte(d), &rec); err != nil {
			r.logger.WithError(err).Warn("failed to unmarshal event from cache")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping checks Redis reachability.
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying Redis connection.
func (r *RedisSink) Close() error {
	r.logger.Debug("closing Redis connection")
	return r.client.Close()
}
