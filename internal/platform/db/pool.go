package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolOptions configures NewPool.
type PoolOptions struct {
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
	// ConnectAttempts is how many times the first ping is tried before
	// giving up. Zero means once.
	ConnectAttempts int
	RetryDelay      time.Duration
	Logger          zerolog.Logger
}

func poolConfig(opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "agenda-server"
	return cfg, nil
}

// NewPool opens a pgx pool and waits until the database answers a ping,
// retrying while the database is still starting up.
func NewPool(ctx context.Context, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func pingWithRetry(ctx context.Context, p Pinger, opts PoolOptions) error {
	attempts := opts.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = p.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		opts.Logger.Warn().Err(err).Int("attempt", i).Msg("database not ready, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	return err
}
