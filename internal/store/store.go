// Package store provides the persistent relational storage backing every
// other component: the pgxpool connection pool, schema bootstrap, and the
// query methods over the five entities in the data model.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the PostgreSQL connection pool used by every component.
// It is passed explicitly through the call graph rather than held as a
// process-wide singleton.
type Store struct {
	Pool *pgxpool.Pool
}

// New creates a connection pool and verifies connectivity.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
		cfg.Schema,
		cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Health checks store connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// EnsureSchema creates the five entity tables and their indexes if they do
// not already exist. Ownership and lifecycle of all data belongs to the
// store; nothing here is ever dropped by the engine.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS workspace_accounts (
	workspace TEXT PRIMARY KEY,
	account   UUID NOT NULL
);

CREATE TABLE IF NOT EXISTS billing_items (
	uuid UUID PRIMARY KEY,
	sku  TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS billing_item_prices (
	uuid          UUID PRIMARY KEY,
	item_id       UUID NOT NULL REFERENCES billing_items(uuid),
	price         NUMERIC NOT NULL,
	valid_from    TIMESTAMPTZ NOT NULL,
	valid_until   TIMESTAMPTZ,
	configured_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT valid_window CHECK (valid_until IS NULL OR valid_from <= valid_until)
);
CREATE INDEX IF NOT EXISTS idx_billing_item_prices_item_valid_from ON billing_item_prices(item_id, valid_from);

CREATE TABLE IF NOT EXISTS billing_events (
	uuid        UUID PRIMARY KEY,
	event_start TIMESTAMPTZ NOT NULL,
	event_end   TIMESTAMPTZ NOT NULL,
	item_id     UUID NOT NULL REFERENCES billing_items(uuid),
	workspace   TEXT NOT NULL,
	"user"      UUID,
	quantity    DOUBLE PRECISION NOT NULL,
	CONSTRAINT valid_interval CHECK (event_start <= event_end)
);
CREATE INDEX IF NOT EXISTS idx_billing_events_workspace_start ON billing_events(workspace, event_start);
CREATE INDEX IF NOT EXISTS idx_billing_events_start ON billing_events(event_start);

CREATE TABLE IF NOT EXISTS consumption_rate_samples (
	uuid        UUID PRIMARY KEY,
	sample_time TIMESTAMPTZ NOT NULL,
	item_id     UUID NOT NULL REFERENCES billing_items(uuid),
	workspace   TEXT NOT NULL,
	"user"      UUID,
	rate        DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_samples_workspace_time ON consumption_rate_samples(workspace, sample_time);
CREATE INDEX IF NOT EXISTS idx_rate_samples_time ON consumption_rate_samples(sample_time);
`
