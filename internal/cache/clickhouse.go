package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/constants"
)

// ClickHouseSink durably inserts one row per event for offline querying. It
// is wired as a best-effort secondary of RedisSink (SPEC_FULL.md §4.8): a
// failed insert is logged and swallowed, never returned to the dispatcher.
type ClickHouseSink struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// ClickHouseConfig holds the connection settings for ClickHouseSink.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// NewClickHouseSink connects to ClickHouse and verifies the connection.
func NewClickHouseSink(cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	database := cfg.Database
	if database == "" {
		database = constants.ClickHouseDatabase
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseSink{conn: conn, logger: cfg.Logger}, nil
}

// Insert writes one event row. Errors are returned to the caller so a
// composing sink can decide whether to log-and-continue.
func (c *ClickHouseSink) Insert(ctx context.Context, ev amm.Event) error {
	rec := newEventRecord(ev, time.Now().UTC())
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			opcode, pool, accounts, data, timestamp
		) VALUES (?, ?, ?, ?, ?)
	`, constants.ClickHouseEventsTable)

	if err := c.conn.Exec(ctx, query,
		rec.Opcode,
		rec.Pool,
		rec.Accounts,
		string(data),
		rec.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (c *ClickHouseSink) Close() error {
	return c.conn.Close()
}
