// Package cache implements the ambient node's event-log pipeline
// (SPEC_FULL.md §4.8): a Redis list + pub/sub fanout plus a best-effort
// ClickHouse sink for durable querying, generalized from the teacher's
// single-shape SwapEvent cache/pub-sub/ClickHouse trio to one record
// covering every mutating opcode.
package cache

import (
	"encoding/json"
	"time"

	"github.com/gorb-swap/amm-core/internal/amm"
)

// EventRecord is the wire/storage form of an amm.Event: public keys and
// the free-form Data map rendered as JSON-friendly strings/values.
type EventRecord struct {
	Opcode    string         `json:"opcode"`
	Pool      string         `json:"pool"`
	Accounts  []string       `json:"accounts"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func newEventRecord(ev amm.Event, at time.Time) EventRecord {
	accounts := make([]string, len(ev.Accounts))
	for i, a := range ev.Accounts {
		accounts[i] = a.String()
	}
	return EventRecord{
		Opcode:    ev.Opcode,
		Pool:      ev.Pool.String(),
		Accounts:  accounts,
		Data:      ev.Data,
		Timestamp: at,
	}
}

func (r EventRecord) marshal() ([]byte, error) {
	return json.Marshal(r)
}
