// Package storage defines the ports the ambient node's event-log pipeline
// satisfies, so internal/server depends on an interface rather than
// internal/cache's concrete Redis/ClickHouse types.
package storage

import (
	"context"
	"io"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/cache"
)

// EventLog is the observational event-log port (SPEC_FULL.md §4.8): an
// amm.EventRecorder that can also be read back and health-checked.
type EventLog interface {
	amm.EventRecorder

	// GetRecent returns the most recently recorded events, newest first.
	GetRecent(ctx context.Context, limit int64) ([]cache.EventRecord, error)

	// Ping checks whether the log's backing store is reachable.
	Ping(ctx context.Context) error

	io.Closer
}
