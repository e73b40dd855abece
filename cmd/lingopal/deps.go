// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/lingopal/lingopal/internal/config"
	"github.com/lingopal/lingopal/internal/mail"
	"github.com/lingopal/lingopal/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DBFactory connects to PostgreSQL.
	// Default: store.Connect with store.DefaultConnectOptions
	DBFactory func(ctx context.Context, dsn string, logger *slog.Logger) (DB, error)

	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// MailWorkerFactory creates the worker draining the email topic.
	// Default: mail.NewWorker delivering through mail.NewSMTPSender
	MailWorkerFactory func(cfg *config.Config, logger *slog.Logger) (MailWorker, error)

	// ListenerFactory creates the public HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// DB wraps the methods used from *pgxpool.Pool.
type DB interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Steps(n int) error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Status() (store.Status, error)
	Close() error
}

// MailWorker wraps the methods used from mail.Worker.
type MailWorker interface {
	Run(ctx context.Context) error
}

func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.DBFactory == nil {
		out.DBFactory = func(ctx context.Context, dsn string, logger *slog.Logger) (DB, error) {
			opts := store.DefaultConnectOptions()
			opts.Logger = logger
			pool, err := store.Connect(ctx, dsn, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.MailWorkerFactory == nil {
		out.MailWorkerFactory = func(cfg *config.Config, logger *slog.Logger) (MailWorker, error) {
			sender, err := mail.NewSMTPSender(cfg.Mail.SMTP)
			if err != nil {
				return nil, err
			}
			worker, err := mail.NewWorker(cfg.Mail.Kafka, sender, logger)
			if err != nil {
				return nil, err
			}
			return worker, nil
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return out
}
