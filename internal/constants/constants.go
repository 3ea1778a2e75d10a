// Package constants holds the ambient node's Redis/ClickHouse naming and
// bound constants: the keys, channels, and table the event-log pipeline in
// internal/cache writes to. See SPEC_FULL.md §4.8.
package constants

const (
	// RedisKeyRecentEvents is the capped list of the most recent mutating
	// instructions, read back by RedisSink.GetRecent.
	RedisKeyRecentEvents = "events:recent"

	// PubSubChannelEvents is the live-consumer fanout channel for events.
	PubSubChannelEvents = "events:live"

	// MaxRecentEvents bounds the recent-events list (SPEC_FULL.md §4.8
	// "capped at a bounded recent-events window").
	MaxRecentEvents = 200

	// ClickHouseDatabase and ClickHouseEventsTable name the durable sink the
	// ambient node inserts into on a best-effort basis.
	ClickHouseDatabase   = "gorb_amm"
	ClickHouseEventsTable = "instruction_events"
)
