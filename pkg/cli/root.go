/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the nodectl command surface.
package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// New builds the root command.
func New() *cli.Command {
	return &cli.Command{
		Name:  "nodectl",
		Usage: "Converge cluster node runtime and logging-agent configuration",
		Commands: []*cli.Command{
			reconcileCmd(),
			versionCmd(),
		},
	}
}

// Run executes the CLI with the given arguments.
func Run(ctx context.Context, args []string) error {
	return New().Run(ctx, args)
}
