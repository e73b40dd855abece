// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lingopal/lingopal/internal/config"
	"github.com/lingopal/lingopal/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the LingoPal CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "lingopal",
		Short: "LingoPal - accounts and sessions for a language exchange",
		Long: `LingoPal serves registration, email verification, login sessions,
password reset and contact lists for language exchange partners.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/lingopal/config.yaml)")
	flags.String("http-addr", "", "public HTTP listen address")
	flags.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", "", "log format (json or text)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("storage", "", "storage driver (postgres or memory)")
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.String("mail", "", "mail driver (log, smtp or kafka)")
	flags.String("base-url", "", "public base URL used in emailed links")

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newMailerCmd(deps))
	cmd.AddCommand(newSweepCmd(deps))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig reads the layered configuration for cmd. Only flags the user
// set override lower layers.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors are already coded
	return config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	logger := logging.New(logging.Options{
		Service: "lingopal",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  w,
	})
	slog.SetDefault(logger)
	return logger
}
