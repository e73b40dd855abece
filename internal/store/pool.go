// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package store bootstraps PostgreSQL access: the connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool is the query surface repositories depend on. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// ConnectOptions tunes the startup ping loop.
type ConnectOptions struct {
	// MaxRetries bounds ping attempts after the first.
	MaxRetries uint64
	// BaseDelay is the first backoff interval; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration
	Logger   *slog.Logger
}

// DefaultConnectOptions waits roughly half a minute for the database.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxRetries: 8,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Logger:     slog.Default(),
	}
}

// Connect builds a pool for dsn and pings it with exponential backoff until
// the database answers or the retries run out. Call it once at process start
// and pass the pool to every repository.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backoff := retry.NewExponential(opts.BaseDelay)
	backoff = retry.WithCappedDuration(opts.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(opts.MaxRetries, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database not reachable yet",
				"attempt", attempt,
				"host", cfg.ConnConfig.Host,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}

	logger.InfoContext(ctx, "database connected", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return pool, nil
}
