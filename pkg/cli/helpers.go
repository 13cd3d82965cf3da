/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/clusterops/nodectl/pkg/report"
)

var kubeconfigFlag = &cli.StringFlag{
	Name:  "kubeconfig",
	Usage: "Path to the kubeconfig file (default: KUBECONFIG, then ~/.kube/config, then in-cluster)",
}

// parseOutputFormat extracts and validates the output format from CLI flags.
func parseOutputFormat(cmd *cli.Command) (report.Format, error) {
	format := report.Format(cmd.String("format"))
	if format.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q, valid formats are: yaml, json, table", format)
	}
	return format, nil
}

// setupLogging configures the process-wide slog level.
func setupLogging(level string) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})))
	return nil
}
