/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package reconciler wires the full run: desired state in, validated and
// gated, artifacts rendered and bundled to the cluster, every target node
// converged and rolled out, one summary back.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clusterops/nodectl/pkg/cluster"
	"github.com/clusterops/nodectl/pkg/converge"
	"github.com/clusterops/nodectl/pkg/desired"
	"github.com/clusterops/nodectl/pkg/pkgmgr"
	"github.com/clusterops/nodectl/pkg/render"
	"github.com/clusterops/nodectl/pkg/report"
	"github.com/clusterops/nodectl/pkg/rollout"
	"github.com/clusterops/nodectl/pkg/sysd"
	"github.com/clusterops/nodectl/pkg/template"
	"github.com/clusterops/nodectl/pkg/versiongate"
)

// Resource names the reconciler provisions in the cluster.
const (
	ServiceAccountName = "node-agent"
	ConfigMapName      = "node-agent-config"
	SecretName         = "node-agent-certs"
	DaemonSetName      = "node-agent"
	ClusterReaderRole  = "cluster-reader"
)

// Reconciler carries the collaborators for one reconcile invocation.
type Reconciler struct {
	Cluster   cluster.API
	Services  sysd.Manager
	Packages  pkgmgr.Manager
	Templates template.Renderer

	// NewEngine builds the convergence engine that owns one node's
	// configuration for this run. Injectable for tests.
	NewEngine func(node string) *converge.Engine

	// AgentImage is the logging-agent container image for the DaemonSet.
	AgentImage string

	// CertDir holds the credential bundle (ca, key, cert) to deliver as a
	// secret. Empty or missing means no secret is applied.
	CertDir string

	// Overrides replaces rendered artifact bodies by template reference.
	Overrides map[string]string

	// ReadyTimeout bounds each node's readiness wait during rollout. Zero
	// keeps the rollout default.
	ReadyTimeout time.Duration
}

// Run executes one full reconciliation and returns the aggregated summary.
// Precondition and version-gate failures return an error before any cluster
// mutation; per-node failures are recorded in the summary instead.
func (r *Reconciler) Run(ctx context.Context, state desired.State) (report.Summary, error) {
	if err := state.Validate(); err != nil {
		return report.Summary{}, err
	}

	runID := uuid.NewString()
	slog.Info("starting reconcile run",
		slog.String("run_id", runID),
		slog.String("mode", string(state.Mode)),
		slog.Int("targets", len(state.Nodes)),
	)

	// Run-scoped workspace for rendered artifacts, removed on every path.
	workspace, err := os.MkdirTemp("", "nodectl-run-")
	if err != nil {
		return report.Summary{}, fmt.Errorf("failed to create run workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			slog.Warn("failed to remove run workspace", "error", err, "path", workspace)
		}
	}()

	if err := r.gateVersion(ctx, state); err != nil {
		return report.Summary{}, err
	}

	rendered, err := render.Render(state)
	if err != nil {
		return report.Summary{}, err
	}

	if state.Mode == desired.ModeInstall {
		if err := r.provisionBundle(ctx, state, workspace); err != nil {
			return report.Summary{}, err
		}
	}

	selector := state.NodeSelector
	if state.Mode == desired.ModeUninstall {
		// Flipping the placement label drains the agent daemonset; node
		// config files are left for the next install run to reconcile.
		selector.Value = "false"
	}

	fleet := rollout.New(r.Cluster, selector, r.convergeFunc(state, rendered))
	if r.ReadyTimeout > 0 {
		fleet.ReadyTimeout = r.ReadyTimeout
	}
	results, err := fleet.Run(ctx, state.Nodes)
	if err != nil {
		return report.Summary{}, err
	}

	summary := report.Summarize(runID, results)
	slog.Info("reconcile run finished",
		slog.String("run_id", runID),
		slog.String("outcome", string(summary.Outcome)),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// gateVersion evaluates the version policy against the control host's
// installed runtime before anything is mutated. Any veto fails the whole
// run.
func (r *Reconciler) gateVersion(ctx context.Context, state desired.State) error {
	installed, err := r.Packages.QueryInstalledVersion(ctx, converge.RuntimePackage)
	if err != nil {
		return fmt.Errorf("failed to query installed runtime version: %w", err)
	}

	verdict, err := versiongate.EvaluateStrings(
		installed, state.RuntimeVersion, state.MinimumVersion, state.UpgradeBoundary)
	if err != nil {
		return err
	}
	if !verdict.IsOk() {
		return &VersionGateError{
			Verdict:   verdict,
			Installed: installed,
			Requested: state.RuntimeVersion,
		}
	}
	return nil
}

// provisionBundle renders the three agent artifacts into the workspace and
// delivers them, with RBAC and the DaemonSet, to the cluster.
func (r *Reconciler) provisionBundle(ctx context.Context, state desired.State, workspace string) error {
	artifacts, err := r.renderArtifacts(state, workspace)
	if err != nil {
		return err
	}

	if err := r.Cluster.CreateServiceAccount(ctx, ServiceAccountName); err != nil {
		return err
	}
	if err := r.Cluster.GrantRole(ctx, ServiceAccountName, ClusterReaderRole, cluster.ScopeCluster); err != nil {
		return err
	}
	if err := r.Cluster.ApplyConfigMap(ctx, ConfigMapName, artifacts); err != nil {
		return err
	}

	if secret, err := r.loadCertBundle(); err != nil {
		return err
	} else if secret != nil {
		if err := r.Cluster.ApplySecret(ctx, SecretName, secret); err != nil {
			return err
		}
	}

	return r.Cluster.ApplyDaemonSet(ctx, cluster.DaemonSetSpec{
		Name:           DaemonSetName,
		Image:          r.AgentImage,
		ServiceAccount: ServiceAccountName,
		NodeSelector:   map[string]string{state.NodeSelector.Key: state.NodeSelector.Value},
		ConfigMapName:  ConfigMapName,
		SecretName:     SecretName,
	})
}

// renderArtifacts produces the configuration bundle contents. Each artifact
// is also written into the run workspace for diagnostics.
func (r *Reconciler) renderArtifacts(state desired.State, workspace string) (map[string]string, error) {
	vars := map[string]map[string]any{
		template.RefFluentConf: {
			"AppHost": state.Logging.AppHost,
			"AppPort": state.Logging.AppPort,
			"OpsHost": state.Logging.OpsHost,
			"OpsPort": state.Logging.OpsPort,
		},
		template.RefThrottleConfig: {
			"Projects": state.Logging.Throttle,
		},
		template.RefSecureForward: {
			"SharedKey": state.Logging.SharedKey,
			"OpsHost":   state.Logging.OpsHost,
			"OpsPort":   state.Logging.OpsPort,
		},
	}

	artifacts := make(map[string]string, len(vars))
	for _, ref := range []string{template.RefFluentConf, template.RefThrottleConfig, template.RefSecureForward} {
		body, ok := r.Overrides[ref]
		if !ok {
			var err error
			body, err = r.Templates.Render(ref, vars[ref])
			if err != nil {
				return nil, err
			}
		}
		artifacts[ref] = body

		if err := os.WriteFile(filepath.Join(workspace, ref), []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage artifact %q: %w", ref, err)
		}
	}
	return artifacts, nil
}

// loadCertBundle reads the ca/key/cert files, or returns nil when no bundle
// directory is configured or present.
func (r *Reconciler) loadCertBundle() (map[string][]byte, error) {
	if r.CertDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(r.CertDir); os.IsNotExist(err) {
		slog.Debug("no credential bundle directory, skipping secret", slog.String("dir", r.CertDir))
		return nil, nil
	}

	bundle := make(map[string][]byte, 3)
	for _, name := range []string{"ca", "key", "cert"} {
		raw, err := os.ReadFile(filepath.Join(r.CertDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read credential bundle file %q: %w", name, err)
		}
		bundle[name] = raw
	}
	return bundle, nil
}

// convergeFunc builds the per-node convergence closure handed to the fleet
// rollout. Every error it returns is fatal to that node only.
func (r *Reconciler) convergeFunc(state desired.State, rendered render.Config) rollout.ConvergeFunc {
	return func(ctx context.Context, node string) error {
		if state.Mode == desired.ModeUninstall {
			// Only the placement label changes on uninstall.
			return nil
		}

		engine := r.newEngine(node)

		installed, err := engine.Probe(ctx)
		if err != nil {
			return err
		}

		if err := engine.EnsureRuntime(ctx, state.RuntimeVersion, installed); err != nil {
			return err
		}
		if err := engine.ProvisionCredentials(state.Credentials); err != nil {
			return err
		}

		plan, err := engine.Converge(rendered)
		if err != nil {
			return &converge.ApplyError{Node: node, Err: err}
		}

		_, err = engine.Apply(ctx, plan)
		return err
	}
}

func (r *Reconciler) newEngine(node string) *converge.Engine {
	if r.NewEngine != nil {
		return r.NewEngine(node)
	}
	return converge.NewEngine(node, r.Services, r.Packages)
}
