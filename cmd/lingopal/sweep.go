// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/lingopal/lingopal/internal/auth"
)

func newSweepCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Delete sessions whose expiry has passed. Expired sessions are already
rejected on every request; sweeping only reclaims storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			b, err := openBackend(cmd.Context(), cfg, logger, deps)
			if err != nil {
				return err
			}
			defer b.close()

			sessions, err := auth.NewSessionStore(b.sessions, auth.WithLogger(logger))
			if err != nil {
				return err
			}
			n, err := sessions.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("expired sessions swept", "count", n)
			cmd.Printf("Removed %d expired session(s)\n", n)
			return nil
		},
	}
}
