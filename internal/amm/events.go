package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Event is the observational record emitted for every successful
// state-mutating opcode (SPEC_FULL.md §4.8). It is never consulted by the
// dispatcher itself — losing or replaying events never changes pool state,
// which lives solely in the account store.
type Event struct {
	Opcode   string
	Pool     solana.PublicKey
	Accounts []solana.PublicKey
	Data     map[string]any
}

// EventRecorder is the event-log port a Processor emits through. nil
// disables event emission entirely, mirroring FlagChecker's nil-disables
// convention.
type EventRecorder interface {
	Record(ctx context.Context, ev Event) error
}

// emit best-effort records ev: a failing or unconfigured recorder never
// fails the instruction that produced the event, since the log is
// observational only (SPEC_FULL.md §4.8).
func (p *Processor) emit(ctx context.Context, ev Event) {
	if p.Events == nil {
		return
	}
	_ = p.Events.Record(ctx, ev)
}
