package cache

import (
	"context"

	"github.com/gorb-swap/amm-core/internal/amm"
)

// Pipeline composes the Redis sink (authoritative within the ambient node's
// observational layer — recent list + live pub/sub) with an optional
// ClickHouse sink (durable querying only). It is the concrete
// amm.EventRecorder wired into Processor.
type Pipeline struct {
	Redis      *RedisSink
	ClickHouse *ClickHouseSink // nil disables the durable sink entirely
}

// Record implements amm.EventRecorder.
func (p *Pipeline) Record(ctx context.Context, ev amm.Event) error {
	if err := p.Redis.Record(ctx, ev); err != nil {
		return err
	}
	if p.ClickHouse != nil {
		if err := p.ClickHouse.Insert(ctx, ev); err != nil {
			p.Redis.logger.WithError(err).Warn("clickhouse event insert failed")
		}
	}
	return nil
}

// GetRecent delegates to the Redis sink.
func (p *Pipeline) GetRecent(ctx context.Context, limit int64) ([]EventRecord, error) {
	return p.Redis.GetRecent(ctx, limit)
}

// Ping checks the Redis sink (the authoritative half of the pipeline).
func (p *Pipeline) Ping(ctx context.Context) error {
	return p.Redis.Ping(ctx)
}

// Close closes both sinks, returning the Redis sink's error if both fail.
func (p *Pipeline) Close() error {
	if p.ClickHouse != nil {
		_ = p.ClickHouse.Close()
	}
	return p.Redis.Close()
}
