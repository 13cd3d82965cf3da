/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package pkgmgr queries and installs host packages. The reconciler only
// needs two operations; everything else about package management stays with
// the host tooling.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Manager is the narrow package-manager surface the reconciler consumes.
type Manager interface {
	// QueryInstalledVersion returns the installed version of pkg, or ""
	// when the package is not installed.
	QueryInstalledVersion(ctx context.Context, pkg string) (string, error)

	// Install installs pkg, optionally pinned to version ("" means the
	// repository default).
	Install(ctx context.Context, pkg, version string) error
}

// RPMManager implements Manager with rpm/yum on the host.
type RPMManager struct{}

// QueryInstalledVersion implements Manager. A non-installed package is not
// an error.
func (RPMManager) QueryInstalledVersion(ctx context.Context, pkg string) (string, error) {
	out, err := exec.CommandContext(ctx, "rpm", "-q", "--queryformat", "%{VERSION}", pkg).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			// rpm exits 1 when the package is not installed.
			return "", nil
		}
		return "", fmt.Errorf("failed to query %q: %w", pkg, err)
	}

	version := strings.TrimSpace(string(out))
	slog.Debug("queried installed package", slog.String("package", pkg), slog.String("version", version))
	return version, nil
}

// Install implements Manager.
func (RPMManager) Install(ctx context.Context, pkg, version string) error {
	spec := pkg
	if version != "" {
		spec = pkg + "-" + version
	}

	slog.Debug("installing package", slog.String("spec", spec))
	if out, err := exec.CommandContext(ctx, "yum", "install", "-y", spec).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to install %q: %w: %s", spec, err, strings.TrimSpace(string(out)))
	}
	return nil
}
