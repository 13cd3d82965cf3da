/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package render turns a desired-state document into the concrete
// configuration artifacts written to a node. Rendering is pure: the same
// desired state always produces byte-identical output, which is what makes
// the convergence diff deterministic.
package render

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/clusterops/nodectl/pkg/desired"
	"github.com/clusterops/nodectl/pkg/versiongate"
)

// Config is the rendered daemon configuration.
type Config struct {
	// OptionsLine is the OPTIONS= line. Flag order is a contract: selinux,
	// log-driver, log-opts, extra options, push confirmation, signature
	// verification. Reordering would make every existing node diff dirty.
	OptionsLine string

	// RegistryLines carries one line per non-empty registry directive list.
	RegistryLines []string

	// ProxyLines carries one line per non-empty proxy setting. An unset
	// proxy has no line at all rather than an empty value.
	ProxyLines []string
}

// FileLines returns the full daemon config file content, one entry per line,
// in the order the artifact is written.
func (c Config) FileLines() []string {
	lines := make([]string, 0, 1+len(c.RegistryLines)+len(c.ProxyLines))
	lines = append(lines, c.OptionsLine)
	lines = append(lines, c.RegistryLines...)
	lines = append(lines, c.ProxyLines...)
	return lines
}

// Render produces the daemon configuration artifacts for the given desired
// state. The only failure mode is a malformed requested runtime version.
func Render(state desired.State) (Config, error) {
	if state.RuntimeVersion != "" {
		if _, err := semver.ParseTolerant(state.RuntimeVersion); err != nil {
			return Config{}, fmt.Errorf("%w: %q", versiongate.ErrInvalidVersionFormat, state.RuntimeVersion)
		}
	}

	return Config{
		OptionsLine:   optionsLine(state.Options),
		RegistryLines: registryLines(state.Registries),
		ProxyLines:    proxyLines(state.Proxy),
	}, nil
}

func optionsLine(opts desired.Options) string {
	var flags []string

	if opts.SELinuxEnabled {
		flags = append(flags, "--selinux-enabled")
	}
	if opts.LogDriver != "" {
		flags = append(flags, "--log-driver="+opts.LogDriver)
	}
	for _, kv := range opts.LogOpts {
		flags = append(flags, fmt.Sprintf("--log-opt %s=%s", kv.Key, kv.Value))
	}
	flags = append(flags, opts.Extra...)
	flags = append(flags, fmt.Sprintf("--confirm-def-push=%t", opts.ConfirmPush))
	flags = append(flags, fmt.Sprintf("--signature-verification=%t", opts.VerifySigs))

	return fmt.Sprintf("OPTIONS='%s'", strings.Join(flags, " "))
}

func registryLines(regs desired.Registries) []string {
	var lines []string

	if line := registryLine("ADD_REGISTRY", "--add-registry", regs.Added); line != "" {
		lines = append(lines, line)
	}
	if line := registryLine("BLOCK_REGISTRY", "--block-registry", regs.Blocked); line != "" {
		lines = append(lines, line)
	}
	if line := registryLine("INSECURE_REGISTRY", "--insecure-registry", regs.Insecure); line != "" {
		lines = append(lines, line)
	}

	return lines
}

// registryLine emits nothing for an empty list; each entry is independently
// prefixed with its directive flag.
func registryLine(variable, flag string, hosts []string) string {
	if len(hosts) == 0 {
		return ""
	}
	directives := make([]string, 0, len(hosts))
	for _, host := range hosts {
		directives = append(directives, flag+" "+host)
	}
	return fmt.Sprintf("%s='%s'", variable, strings.Join(directives, " "))
}

func proxyLines(proxy desired.Proxy) []string {
	var lines []string

	if proxy.HTTP != "" {
		lines = append(lines, fmt.Sprintf("HTTP_PROXY='%s'", proxy.HTTP))
	}
	if proxy.HTTPS != "" {
		lines = append(lines, fmt.Sprintf("HTTPS_PROXY='%s'", proxy.HTTPS))
	}
	if proxy.NoProxy != "" {
		lines = append(lines, fmt.Sprintf("NO_PROXY='%s'", proxy.NoProxy))
	}

	return lines
}
