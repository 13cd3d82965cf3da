package desired

import (
	"fmt"
	"net"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/distribution/reference"
)

// Validate checks the desired state before any cluster mutation. Every
// failure is a *PreconditionError.
func (s State) Validate() error {
	switch s.Mode {
	case ModeInstall, ModeUninstall:
	default:
		return preconditionf("mode", "invalid mode %q, valid modes are: %s, %s",
			s.Mode, ModeInstall, ModeUninstall)
	}

	if !validDeploymentType(s.DeploymentType) {
		msg := fmt.Sprintf("invalid deployment type %q, valid types are: %s",
			s.DeploymentType, strings.Join(DeploymentTypes, ", "))
		if suggestion := SuggestDeploymentType(s.DeploymentType); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return preconditionf("deploymentType", "%s", msg)
	}

	if s.Logging.AppHost == "" {
		return preconditionf("logging.appHost", "application log destination is required")
	}
	if s.Logging.AppPort <= 0 || s.Logging.AppPort > 65535 {
		return preconditionf("logging.appPort", "invalid port %d", s.Logging.AppPort)
	}
	if s.Logging.OpsHost == "" {
		return preconditionf("logging.opsHost", "operations log destination is required")
	}
	if s.Logging.OpsPort <= 0 || s.Logging.OpsPort > 65535 {
		return preconditionf("logging.opsPort", "invalid port %d", s.Logging.OpsPort)
	}

	if s.NodeSelector.Key == "" || s.NodeSelector.Value == "" {
		return preconditionf("nodeSelector", "exactly one key=value pair is required")
	}

	if len(s.Nodes) == 0 {
		return preconditionf("nodes", "at least one node target (or %q) is required", NodesAll)
	}
	for _, n := range s.Nodes {
		if n == NodesAll && len(s.Nodes) > 1 {
			return preconditionf("nodes", "%q cannot be combined with explicit node names", NodesAll)
		}
	}

	for _, group := range []struct {
		field     string
		hosts     []string
		allowCIDR bool
	}{
		{"registries.added", s.Registries.Added, false},
		{"registries.blocked", s.Registries.Blocked, false},
		// The daemon accepts CIDR blocks for insecure registries.
		{"registries.insecure", s.Registries.Insecure, true},
	} {
		for _, host := range group.hosts {
			if group.allowCIDR {
				if _, _, err := net.ParseCIDR(host); err == nil {
					continue
				}
			}
			if err := validateRegistryHost(host); err != nil {
				return preconditionf(group.field, "invalid registry %q: %v", host, err)
			}
		}
	}

	if s.Credentials != nil {
		if s.Credentials.Registry == "" || s.Credentials.Username == "" || s.Credentials.Password == "" {
			return preconditionf("credentials", "registry, username and password are all required")
		}
	}

	return nil
}

func validDeploymentType(dt string) bool {
	for _, valid := range DeploymentTypes {
		if dt == valid {
			return true
		}
	}
	return false
}

// SuggestDeploymentType returns the closest valid deployment type within a
// small edit distance of the given input, or "" when nothing is close.
func SuggestDeploymentType(input string) string {
	const maxDistance = 3

	best, bestDist := "", maxDistance+1
	for _, valid := range DeploymentTypes {
		if d := levenshtein.ComputeDistance(input, valid); d < bestDist {
			best, bestDist = valid, d
		}
	}
	return best
}

// validateRegistryHost checks that a registry host is a well-formed registry
// location. A registry host alone is not a full image reference, so validate
// it as the domain of a canonical-form reference.
func validateRegistryHost(host string) error {
	if host == "" {
		return fmt.Errorf("empty registry host")
	}
	named, err := reference.ParseNamed(host + "/library/validate")
	if err != nil {
		return err
	}
	if reference.Domain(named) != host {
		return fmt.Errorf("host %q did not parse as a registry domain", host)
	}
	return nil
}

// ParseSelector parses a "key=value" node-selector argument. Multiple pairs
// (comma separated) are rejected: the agent placement contract is a single
// label pair.
func ParseSelector(arg string) (Selector, error) {
	if strings.Contains(arg, ",") {
		return Selector{}, preconditionf("nodeSelector",
			"conflicting selector keys in %q: exactly one key=value pair is allowed", arg)
	}
	key, value, found := strings.Cut(arg, "=")
	if !found || key == "" || value == "" {
		return Selector{}, preconditionf("nodeSelector",
			"malformed selector %q, expected key=value", arg)
	}
	return Selector{Key: key, Value: value}, nil
}
