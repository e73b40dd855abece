// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package main

import (
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("lingopal %s\n", version)
			cmd.Printf("  commit: %s\n", commit)
			cmd.Printf("  built:  %s\n", date)
			cmd.Printf("  go:     %s\n", runtime.Version())
		},
	}
}
