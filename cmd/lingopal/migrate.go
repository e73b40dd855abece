// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lingopal/lingopal/internal/config"
	"github.com/lingopal/lingopal/internal/store"
)

func newMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long:  `Apply, roll back and inspect database migrations. Without a subcommand all pending migrations are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				return migrateUp(cmd, m)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				return migrateUp(cmd, m)
			})
		},
	})

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && steps < 1 {
				return oops.Code("MIGRATION_INVALID_STEPS").With("steps", steps).Errorf("--steps must be at least 1")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if all {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("All migrations rolled back")
					return nil
				}
				if err := m.Steps(-steps); err != nil {
					return err
				}
				cmd.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Println(formatVersion(v, dirty))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long:  `Mark the schema as VERSION and clear the dirty flag. Use after fixing a failed migration by hand.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("MIGRATION_INVALID_VERSION").With("version", args[0]).Errorf("version must be an integer")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", v)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List migrations not yet applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				printPending(cmd, pending)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Println("Schema version:", formatVersion(st.Version, st.Dirty))
				printPending(cmd, st.Pending)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator opens a migrator from the config, runs fn and closes it.
func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return oops.Code("CONFIG_INVALID").
			With("key", "storage.driver").
			Errorf("migrations need the postgres storage driver, got %q", cfg.Storage.Driver)
	}

	m, err := deps.MigratorFactory(cfg.Storage.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = oops.Code("MIGRATION_FAILED").With("operation", "close migrator").Wrap(closeErr)
		}
	}()
	return fn(m)
}

func migrateUp(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func formatVersion(v uint, dirty bool) string {
	if v == 0 {
		return "none"
	}
	if dirty {
		return fmt.Sprintf("%d (dirty)", v)
	}
	return strconv.FormatUint(uint64(v), 10)
}

func printPending(cmd *cobra.Command, pending []uint) {
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return
	}
	cmd.Printf("%d pending migration(s):\n", len(pending))
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d_unknown", v)
		}
		cmd.Println(" ", name)
	}
}
