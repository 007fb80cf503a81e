// Package db opens the Postgres pool and applies schema migrations.
package db

import (
	"context"
	"strconv"
	"time"

	"estate_portal_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	minConns     = 2
	connLifetime = time.Hour
	connIdleTime = 30 * time.Minute
)

// NewPool connects and pings. Every session gets the configured
// statement_timeout so a stuck query cannot hold a property lock forever.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := ParsePoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ParsePoolConfig builds the pool settings without connecting.
func ParsePoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	if n := cfg.GetDatabaseMaxConns(); n > 0 {
		poolConfig.MaxConns = int32(n)
	}
	poolConfig.MinConns = min(minConns, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = connLifetime
	poolConfig.MaxConnIdleTime = connIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	if name := cfg.GetServiceName(); name != "" {
		params["application_name"] = name
	}
	if timeout := cfg.GetStatementTimeout(); timeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(timeout.Milliseconds(), 10)
	}
	return poolConfig, nil
}

// PoolAdapter lets the readiness probe ping the pool.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}
