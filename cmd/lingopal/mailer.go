// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lingopal/lingopal/internal/config"
)

func newMailerCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Deliver queued account emails",
		Long: `Consume verification and password reset events from Kafka and send
them over SMTP. Requires mail.driver=kafka and the mail.smtp settings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMailer(cmd.Context(), cmd, deps)
		},
	}
}

func runMailer(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Mail.Driver != config.DriverKafka {
		return oops.Code("CONFIG_INVALID").
			With("key", "mail.driver").
			Errorf("the mailer consumes Kafka; mail.driver is %q", cfg.Mail.Driver)
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	worker, err := deps.MailWorkerFactory(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer started", "topic", cfg.Mail.Kafka.Topic, "group_id", cfg.Mail.Kafka.GroupID)
	if err := worker.Run(ctx); err != nil {
		return err
	}
	logger.Info("mailer stopped")
	return nil
}
