package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
)

const (
	defaultMaxConns    = 4
	defaultMinConns    = 1
	defaultConnTimeout = 10 * time.Second
	defaultIdleTime    = 5 * time.Minute
)

// buildPool creates a pgxpool from the given config
func buildPool(ctx context.Context, cfg *database.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres connection string", err)
	}

	// Select and describe overlap, so keep at least two connections.
	poolCfg.MaxConns = max(withDefault(cfg.MaxConns, defaultMaxConns), 2)
	poolCfg.MinConns = withDefault(cfg.MinConns, defaultMinConns)
	poolCfg.MaxConnIdleTime = withDefaultDuration(cfg.MaxConnIdleTime, defaultIdleTime)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolCfg.ConnConfig.ConnectTimeout = withDefaultDuration(cfg.ConnectTimeout, defaultConnTimeout)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}
	return pool, nil
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}

func withDefaultDuration(val, def time.Duration) time.Duration {
	if val == 0 {
		return def
	}
	return val
}
