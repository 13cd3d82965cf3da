/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package versiongate decides whether a container-runtime install or upgrade
// is allowed under the configured version policy. It is a pure decision
// function: callers treat any non-Ok verdict as a fatal precondition and
// never retry it.
package versiongate

import (
	"errors"
	"fmt"

	"github.com/blang/semver/v4"
)

// Verdict is the outcome of a version-policy evaluation.
type Verdict string

const (
	// Ok means the installed/requested pair passes every policy rule.
	Ok Verdict = "Ok"

	// TooOld means the effective version is below the policy minimum.
	TooOld Verdict = "TooOld"

	// DowngradeRequested means the requested version is older than what is
	// already installed.
	DowngradeRequested Verdict = "DowngradeRequested"

	// BoundaryCrossingDisallowed means the requested upgrade would cross the
	// upgrade boundary in place, which requires an out-of-band procedure.
	BoundaryCrossingDisallowed Verdict = "BoundaryCrossingDisallowed"
)

// IsOk reports whether the verdict permits the reconciliation to proceed.
func (v Verdict) IsOk() bool {
	return v == Ok
}

// ErrInvalidVersionFormat is returned when a version string cannot be parsed.
var ErrInvalidVersionFormat = errors.New("invalid version format")

// Policy holds the version thresholds the gate enforces.
type Policy struct {
	// MinimumVersion is the oldest runtime version the stack supports.
	MinimumVersion semver.Version

	// UpgradeBoundary is the version at or beyond which in-place upgrade
	// from an older installed version is disallowed.
	UpgradeBoundary semver.Version
}

// Evaluate applies the policy rules, in order, to an optional installed
// version and an optional requested version. Nil means "absent".
//
// Rules:
//  1. installed present, below minimum, nothing requested -> TooOld
//  2. requested present and below minimum -> TooOld
//  3. both present and installed newer than requested -> DowngradeRequested
//  4. both present, installed below the boundary, requested at or past it
//     -> BoundaryCrossingDisallowed
//  5. otherwise Ok
func Evaluate(installed, requested *semver.Version, policy Policy) Verdict {
	if installed != nil && installed.LT(policy.MinimumVersion) && requested == nil {
		return TooOld
	}
	if requested != nil && requested.LT(policy.MinimumVersion) {
		return TooOld
	}
	if installed != nil && requested != nil && installed.GT(*requested) {
		return DowngradeRequested
	}
	if installed != nil && requested != nil &&
		installed.LT(policy.UpgradeBoundary) && requested.GTE(policy.UpgradeBoundary) {
		return BoundaryCrossingDisallowed
	}
	return Ok
}

// EvaluateStrings parses the string forms and evaluates the policy. Empty
// strings for installed/requested mean "absent". Short versions such as
// "1.12" are accepted.
func EvaluateStrings(installed, requested, minimum, boundary string) (Verdict, error) {
	pol := Policy{}
	var err error

	pol.MinimumVersion, err = parse(minimum)
	if err != nil {
		return "", fmt.Errorf("minimum version: %w", err)
	}
	pol.UpgradeBoundary, err = parse(boundary)
	if err != nil {
		return "", fmt.Errorf("upgrade boundary: %w", err)
	}

	var installedVer, requestedVer *semver.Version
	if installed != "" {
		v, err := parse(installed)
		if err != nil {
			return "", fmt.Errorf("installed version: %w", err)
		}
		installedVer = &v
	}
	if requested != "" {
		v, err := parse(requested)
		if err != nil {
			return "", fmt.Errorf("requested version: %w", err)
		}
		requestedVer = &v
	}

	return Evaluate(installedVer, requestedVer, pol), nil
}

func parse(s string) (semver.Version, error) {
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}
	return v, nil
}
