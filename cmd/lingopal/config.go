// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lingopal/lingopal/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
LINGOPAL_* environment variables and flags. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := config.Effective(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(raw)
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
}
