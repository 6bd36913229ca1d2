package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS terrenos (
	id          BIGINT PRIMARY KEY,
	titulo      TEXT NOT NULL,
	endereco    TEXT NOT NULL,
	area_m2     DOUBLE PRECISION NOT NULL CHECK (area_m2 > 0),
	preco_real  DOUBLE PRECISION NOT NULL CHECK (preco_real > 0),
	preco_m2    DOUBLE PRECISION NOT NULL,
	link        TEXT NOT NULL DEFAULT '',
	pagina      INTEGER NOT NULL,
	data_coleta DATE NOT NULL,
	localidade  TEXT NOT NULL,
	estado      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS crawl_runs (
	run_id         TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	pages_wanted   INTEGER NOT NULL,
	pages_visited  INTEGER NOT NULL DEFAULT 0,
	records        INTEGER NOT NULL DEFAULT 0,
	stop_reason    TEXT NOT NULL DEFAULT '',
	skips          JSONB NOT NULL DEFAULT '[]',
	failure_reason TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS crawl_runs_started_at_idx ON crawl_runs (started_at DESC);
`

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables used by the crawler when they are missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
