// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/memory"
	"github.com/lingopal/lingopal/internal/auth/postgres"
	"github.com/lingopal/lingopal/internal/config"
	"github.com/lingopal/lingopal/internal/contacts"
	"github.com/lingopal/lingopal/internal/mail"
	"github.com/lingopal/lingopal/internal/observability"
	"github.com/lingopal/lingopal/internal/upload"
	"github.com/lingopal/lingopal/internal/web"
)

// userRepository is what both the credential store and the contacts
// service need from the user backend.
type userRepository interface {
	auth.UserRepository
	contacts.Repository
}

var (
	_ userRepository = (*memory.UserRepository)(nil)
	_ userRepository = (*postgres.UserRepository)(nil)
)

// backend holds the repositories selected by storage.driver.
type backend struct {
	users    userRepository
	sessions auth.SessionRepository
	ready    observability.ReadinessChecker
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (*backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; all data is lost on exit")
		return &backend{
			users:    memory.NewUserRepository(),
			sessions: memory.NewSessionRepository(),
			close:    func() {},
		}, nil
	case config.DriverPostgres:
		db, err := deps.DBFactory(ctx, cfg.Storage.DatabaseURL, logger)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		logger.Info("connected to database")
		return &backend{
			users:    postgres.NewUserRepository(db),
			sessions: postgres.NewSessionRepository(db),
			ready:    db.Ping,
			close:    db.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "storage.driver").Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// application is the fully wired service behind the serve command.
type application struct {
	backend  *backend
	registry *prometheus.Registry
	metrics  *observability.Metrics
	auth     *auth.Service
	guard    *auth.Guard
	contacts *contacts.Service
	uploads  upload.Store
	// uploadDir is served under /uploads/ when pictures live on local disk.
	uploadDir string
	closers   []func() error
	logger    *slog.Logger
	cfg       *config.Config
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (app *application, err error) {
	b, err := openBackend(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	app = &application{backend: b, logger: logger, cfg: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.registry = observability.NewRegistry()
	app.metrics = observability.NewMetrics(app.registry)

	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithRecorder(app.metrics),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithVerificationTTL(cfg.Auth.VerificationTTL),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
		auth.WithRevealUnknownAccounts(cfg.Auth.RevealUnknownAccounts),
	}

	hasher, err := auth.NewArgon2idHasher(cfg.Auth.Argon2)
	if err != nil {
		return nil, err
	}
	credentials, err := auth.NewCredentialStore(b.users, hasher, opts...)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionStore(b.sessions, opts...)
	if err != nil {
		return nil, err
	}

	dispatcher, err := app.newDispatcher()
	if err != nil {
		return nil, err
	}
	if app.auth, err = auth.NewServiceWithLogger(credentials, sessions, dispatcher, logger, opts...); err != nil {
		return nil, err
	}
	if app.guard, err = auth.NewGuard(sessions); err != nil {
		return nil, err
	}
	if app.contacts, err = contacts.NewService(b.users, sessions, logger); err != nil {
		return nil, err
	}
	if err := app.openUploads(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *application) newDispatcher() (mail.Dispatcher, error) {
	links, err := mail.NewLinks(a.cfg.Auth.BaseURL)
	if err != nil {
		return nil, err
	}
	switch a.cfg.Mail.Driver {
	case config.DriverLog:
		return mail.NewLogDispatcher(links, a.logger), nil
	case config.DriverSMTP:
		sender, err := mail.NewSMTPSender(a.cfg.Mail.SMTP)
		if err != nil {
			return nil, err
		}
		return mail.NewSMTPDispatcher(links, sender), nil
	case config.DriverKafka:
		d, err := mail.NewKafkaDispatcher(links, a.cfg.Mail.Kafka)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		return d, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "mail.driver").Errorf("unknown mail driver %q", a.cfg.Mail.Driver)
	}
}

func (a *application) openUploads(ctx context.Context) error {
	switch a.cfg.Upload.Driver {
	case config.DriverDisk:
		s, err := upload.NewDiskStore(a.cfg.Upload.Dir)
		if err != nil {
			return err
		}
		a.uploads = s
		a.uploadDir = s.Dir()
	case config.DriverS3:
		s, err := upload.NewS3Store(ctx, a.cfg.Upload.S3)
		if err != nil {
			return err
		}
		a.uploads = s
	default:
		return oops.Code("CONFIG_INVALID").With("key", "upload.driver").Errorf("unknown upload driver %q", a.cfg.Upload.Driver)
	}
	return nil
}

// router builds the public HTTP handler.
func (a *application) router() (http.Handler, error) {
	//nolint:wrapcheck // web.NewRouter only reports missing wiring
	return web.NewRouter(web.Deps{
		Auth:           a.auth,
		Guard:          a.guard,
		Contacts:       a.contacts,
		Uploads:        a.uploads,
		UploadDir:      a.uploadDir,
		MaxUploadBytes: a.cfg.Upload.MaxBytes,
		CookieSecure:   a.cfg.Auth.CookieSecure,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})
}

// Close releases everything buildApplication opened.
func (a *application) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("error during shutdown", "operation", "close", "error", err)
		}
	}
	if a.backend != nil {
		a.backend.close()
	}
}
