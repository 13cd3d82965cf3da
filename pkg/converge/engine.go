/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package converge brings a single node's container-runtime configuration
// and service state into alignment with the rendered desired state. One
// engine owns one node's configuration files for the duration of a run; no
// other writer may touch them concurrently.
package converge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/clusterops/nodectl/pkg/pkgmgr"
	"github.com/clusterops/nodectl/pkg/retry"
	"github.com/clusterops/nodectl/pkg/sysd"
)

// RuntimePackage is the container-runtime package this stack manages. The
// version gate and every engine query the same package name.
const RuntimePackage = "docker"

// Installed is the node's observed state. It is read fresh at the start of
// every reconciliation and never cached across runs.
type Installed struct {
	// RuntimeVersion is the installed runtime package version, "" when the
	// package is absent.
	RuntimeVersion string

	// ConfigChecksum is the sha256 of the current daemon config file, ""
	// when the file does not exist. Diagnostic only: the plan diff re-reads
	// the file at converge time, so a stale probe can never mask an edit
	// made between probe and plan.
	ConfigChecksum string

	// ServiceActive reports whether the runtime service was active at
	// probe time.
	ServiceActive bool
}

// Engine converges one node. Zero-value fields are filled by NewEngine.
type Engine struct {
	// Node is the node name, used only for diagnostics and error tagging.
	Node string

	// ConfigPath is the daemon config file the engine owns.
	ConfigPath string

	// CredentialPath is the registry credential file location.
	CredentialPath string

	// Package is the runtime package name.
	Package string

	// Service is the runtime service unit.
	Service string

	Services sysd.Manager
	Packages pkgmgr.Manager
	Retry    retry.Policy
}

// NewEngine returns an engine with the stack defaults for a Docker runtime
// node.
func NewEngine(node string, services sysd.Manager, packages pkgmgr.Manager) *Engine {
	return &Engine{
		Node:           node,
		ConfigPath:     "/etc/sysconfig/docker",
		CredentialPath: "/root/.docker/config.json",
		Package:        RuntimePackage,
		Service:        "docker.service",
		Services:       services,
		Packages:       packages,
		Retry:          retry.Default,
	}
}

// Probe reads the node's installed state. The three observations are
// independent, so they are gathered concurrently.
func (e *Engine) Probe(ctx context.Context) (Installed, error) {
	var installed Installed
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		version, err := e.Packages.QueryInstalledVersion(ctx, e.Package)
		if err != nil {
			return fmt.Errorf("failed to query runtime version: %w", err)
		}
		installed.RuntimeVersion = version
		return nil
	})

	g.Go(func() error {
		sum, err := checksumFile(e.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %q: %w", e.ConfigPath, err)
		}
		installed.ConfigChecksum = sum
		return nil
	})

	g.Go(func() error {
		state, err := e.Services.GetActiveState(ctx, e.Service)
		if err != nil {
			return fmt.Errorf("failed to query service state: %w", err)
		}
		installed.ServiceActive = state == sysd.ActiveStateActive
		return nil
	})

	if err := g.Wait(); err != nil {
		return Installed{}, err
	}

	slog.Debug("probed node state",
		slog.String("node", e.Node),
		slog.String("runtime_version", installed.RuntimeVersion),
		slog.String("config_checksum", installed.ConfigChecksum),
		slog.Bool("service_active", installed.ServiceActive),
	)
	return installed, nil
}

// EnsureRuntime installs the runtime package when it is absent, or when a
// specific version is requested and differs from what is installed. The
// version gate has already vetoed downgrades and boundary crossings by the
// time this runs.
func (e *Engine) EnsureRuntime(ctx context.Context, requested string, installed Installed) error {
	switch {
	case installed.RuntimeVersion == "":
		slog.Info("installing runtime",
			slog.String("node", e.Node),
			slog.String("package", e.Package),
			slog.String("version", requested),
		)
	case requested != "" && requested != installed.RuntimeVersion:
		slog.Info("upgrading runtime",
			slog.String("node", e.Node),
			slog.String("from", installed.RuntimeVersion),
			slog.String("to", requested),
		)
	default:
		return nil
	}

	if err := e.Packages.Install(ctx, e.Package, requested); err != nil {
		return fmt.Errorf("failed to install runtime: %w", err)
	}
	return nil
}

// checksumFile returns the sha256 of the file, or "" when it is absent.
func checksumFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
