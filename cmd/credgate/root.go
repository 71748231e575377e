// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var envFile string

// NewRootCmd creates the root command for the CredGate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credgate",
		Short: "CredGate - credential authentication service",
		Long: `CredGate is a credential authentication service providing user
registration, password verification, bearer tokens, and per-client
rate limiting over a JSON REST API.`,
	}

	// Global flag for the dotenv file path
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())

	return cmd
}
