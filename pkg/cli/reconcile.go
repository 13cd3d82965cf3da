/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"k8s.io/client-go/kubernetes"

	"github.com/clusterops/nodectl/pkg/cluster"
	"github.com/clusterops/nodectl/pkg/desired"
	"github.com/clusterops/nodectl/pkg/pkgmgr"
	"github.com/clusterops/nodectl/pkg/reconciler"
	"github.com/clusterops/nodectl/pkg/report"
	"github.com/clusterops/nodectl/pkg/sysd"
	"github.com/clusterops/nodectl/pkg/template"
)

func reconcileCmd() *cli.Command {
	return &cli.Command{
		Name:                  "reconcile",
		EnableShellCompletion: true,
		Usage:                 "Converge node runtime configuration and roll out the logging agent",
		Description: `Converges every target node's container-runtime configuration to the
desired state and provisions the logging agent that consumes it.

The run is gated up front: invalid input and version-policy violations
abort before anything in the cluster is touched. Nodes are then converged
strictly one at a time; a node that fails is recorded and skipped over,
never blocking the rest of the fleet.

# Examples

Reconcile two nodes from a desired-state document:
  nodectl reconcile --config desired.yaml

Reconcile every node, overriding the destinations:
  nodectl reconcile --config desired.yaml --nodes all \
    --app-host logs.example.com --app-port 9200 \
    --ops-host ops-logs.example.com --ops-port 9300

Supply an operator-maintained agent config body:
  nodectl reconcile --config desired.yaml --daemon-config ./fluent.conf`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the desired-state YAML document",
			},
			&cli.StringFlag{
				Name:  "app-host",
				Usage: "Application log destination host",
			},
			&cli.IntFlag{
				Name:  "app-port",
				Usage: "Application log destination port",
			},
			&cli.StringFlag{
				Name:  "ops-host",
				Usage: "Operations log destination host",
			},
			&cli.IntFlag{
				Name:  "ops-port",
				Usage: "Operations log destination port",
			},
			&cli.StringFlag{
				Name:  "node-selector",
				Usage: "Agent placement label (format: key=value, exactly one pair)",
			},
			&cli.StringFlag{
				Name:  "deployment-type",
				Usage: "Deployment type: origin, enterprise or online",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "install or uninstall",
			},
			&cli.StringSliceFlag{
				Name:  "nodes",
				Usage: "Target node name (repeatable), or the single value 'all'",
			},
			&cli.StringFlag{
				Name:  "runtime-version",
				Usage: "Requested container-runtime version (default: keep installed / repository default)",
			},
			&cli.StringFlag{
				Name:  "daemon-config",
				Usage: "File whose content replaces the rendered agent daemon config",
			},
			&cli.StringFlag{
				Name:  "throttle-config",
				Usage: "File whose content replaces the rendered throttle config",
			},
			&cli.StringFlag{
				Name:  "secure-forward-config",
				Usage: "File whose content replaces the rendered secure-forward config",
			},
			&cli.StringFlag{
				Name:  "cert-dir",
				Usage: "Directory holding the ca/key/cert credential bundle to deliver as a secret",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Value: "logging",
				Usage: "Namespace for the agent workload and its bundle",
			},
			&cli.StringFlag{
				Name:  "agent-image",
				Value: "registry.example.com/logging/node-agent:latest",
				Usage: "Logging-agent container image",
			},
			&cli.DurationFlag{
				Name:  "ready-timeout",
				Usage: "Per-node readiness wait during rollout (default: 10m)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(report.FormatYAML),
				Usage:   "Summary output format: yaml, json or table",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn or error",
			},
			kubeconfigFlag,
		},
		Action: runReconcile,
	}
}

func runReconcile(ctx context.Context, cmd *cli.Command) error {
	if err := setupLogging(cmd.String("log-level")); err != nil {
		return err
	}

	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	state, err := stateFromFlags(cmd)
	if err != nil {
		return err
	}

	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		return err
	}

	var clientset *kubernetes.Clientset
	if kubeconfig := cmd.String("kubeconfig"); kubeconfig != "" {
		clientset, _, err = cluster.BuildKubeClient(kubeconfig)
	} else {
		clientset, _, err = cluster.GetKubeClient()
	}
	if err != nil {
		return err
	}

	services, err := sysd.NewDBusManager(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	r := &reconciler.Reconciler{
		Cluster:      cluster.New(clientset, cmd.String("namespace")),
		Services:     services,
		Packages:     pkgmgr.RPMManager{},
		Templates:    template.New(),
		AgentImage:   cmd.String("agent-image"),
		CertDir:      cmd.String("cert-dir"),
		Overrides:    overrides,
		ReadyTimeout: cmd.Duration("ready-timeout"),
	}

	summary, err := r.Run(ctx, state)
	if err != nil {
		return err
	}

	if err := summary.Write(os.Stdout, format); err != nil {
		return err
	}

	if summary.Outcome == report.RunFailed {
		return cli.Exit(fmt.Sprintf("%d of %d nodes failed", summary.Failed, len(summary.Results)), 1)
	}
	return nil
}

// stateFromFlags loads the desired-state document (when given) and overlays
// the explicit flag overrides.
func stateFromFlags(cmd *cli.Command) (desired.State, error) {
	state := desired.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if state, err = desired.FromFile(path); err != nil {
			return desired.State{}, err
		}
	}

	if cmd.IsSet("mode") {
		state.Mode = desired.Mode(cmd.String("mode"))
	}
	if cmd.IsSet("deployment-type") {
		state.DeploymentType = cmd.String("deployment-type")
	}
	if cmd.IsSet("runtime-version") {
		state.RuntimeVersion = cmd.String("runtime-version")
	}
	if cmd.IsSet("app-host") {
		state.Logging.AppHost = cmd.String("app-host")
	}
	if cmd.IsSet("app-port") {
		state.Logging.AppPort = int(cmd.Int("app-port"))
	}
	if cmd.IsSet("ops-host") {
		state.Logging.OpsHost = cmd.String("ops-host")
	}
	if cmd.IsSet("ops-port") {
		state.Logging.OpsPort = int(cmd.Int("ops-port"))
	}
	if cmd.IsSet("nodes") {
		state.Nodes = cmd.StringSlice("nodes")
	}
	if cmd.IsSet("node-selector") {
		selector, err := desired.ParseSelector(cmd.String("node-selector"))
		if err != nil {
			return desired.State{}, err
		}
		state.NodeSelector = selector
	}

	return state, nil
}

// overridesFromFlags reads the operator-supplied artifact bodies.
func overridesFromFlags(cmd *cli.Command) (map[string]string, error) {
	flagToRef := map[string]string{
		"daemon-config":         template.RefFluentConf,
		"throttle-config":       template.RefThrottleConfig,
		"secure-forward-config": template.RefSecureForward,
	}

	overrides := make(map[string]string)
	for flag, ref := range flagToRef {
		path := cmd.String(flag)
		if path == "" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read --%s file: %w", flag, err)
		}
		overrides[ref] = string(raw)
	}
	return overrides, nil
}
