package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const startupPingTimeout = 3 * time.Second

// NewDBPool opens the postgres pool and proves it can serve a round trip
// before the server starts accepting traffic. Schema management happens
// out of band; the pool never runs migrations.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse database url: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("app: open database pool: %w", err)
	}
	if err := PingDB(ctx, pool, startupPingTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: database unreachable: %w", err)
	}
	return pool, nil
}

// PingDB round-trips one query on the pool within timeout. Used at startup
// and by the readiness endpoint.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return pool.Ping(ctx)
}
