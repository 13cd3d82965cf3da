/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

package desired

// Mode selects whether the stack is being installed or removed.
type Mode string

const (
	// ModeInstall converges nodes toward the desired configuration.
	ModeInstall Mode = "install"

	// ModeUninstall removes the managed configuration from nodes.
	ModeUninstall Mode = "uninstall"
)

// DeploymentTypes lists the accepted values for DeploymentType.
var DeploymentTypes = []string{"origin", "enterprise", "online"}

// NodesAll is the sentinel node-target meaning "every node in the cluster".
// When the node list is exactly [NodesAll], a live node-list query is
// substituted at rollout start.
const NodesAll = "all"

// State is the desired configuration a node should converge to. It is
// computed once per run and treated as immutable afterwards; every consumer
// receives it by value.
type State struct {
	// Mode is install or uninstall.
	Mode Mode `yaml:"mode"`

	// DeploymentType identifies the product flavor being configured.
	DeploymentType string `yaml:"deploymentType"`

	// RuntimeVersion is the requested container-runtime version. Empty means
	// "whatever is installed, or the repository default on fresh installs".
	RuntimeVersion string `yaml:"runtimeVersion"`

	// MinimumVersion is the oldest runtime version the stack supports.
	MinimumVersion string `yaml:"minimumVersion"`

	// UpgradeBoundary is the version beyond which in-place upgrade is
	// disallowed.
	UpgradeBoundary string `yaml:"upgradeBoundary"`

	Registries Registries `yaml:"registries"`
	Proxy      Proxy      `yaml:"proxy"`
	Options    Options    `yaml:"daemonOptions"`
	Logging    Logging    `yaml:"logging"`

	// NodeSelector is the single label pair that places the logging agent.
	NodeSelector Selector `yaml:"nodeSelector"`

	// Nodes are the rollout targets: explicit names, or the single sentinel
	// NodesAll.
	Nodes []string `yaml:"nodes"`

	// Credentials, when set, provisions registry login on each node.
	Credentials *Credentials `yaml:"credentials"`
}

// Registries holds the registry directive lists. Empty lists emit nothing.
type Registries struct {
	Added    []string `yaml:"added"`
	Blocked  []string `yaml:"blocked"`
	Insecure []string `yaml:"insecure"`
}

// Proxy holds the daemon proxy settings. An empty value means the
// corresponding line is absent from the rendered config, not blank.
type Proxy struct {
	HTTP    string `yaml:"http"`
	HTTPS   string `yaml:"https"`
	NoProxy string `yaml:"noProxy"`
}

// Options are the daemon option flags. Rendering order is a contract
// (see render.OptionsLine) so LogOpts is an ordered slice, not a map.
type Options struct {
	SELinuxEnabled bool       `yaml:"selinuxEnabled"`
	LogDriver      string     `yaml:"logDriver"`
	LogOpts        []KeyValue `yaml:"logOpts"`
	Extra          []string   `yaml:"extra"`
	ConfirmPush    bool       `yaml:"confirmPush"`
	VerifySigs     bool       `yaml:"verifySignatures"`
}

// KeyValue is an ordered key-value pair.
type KeyValue struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Logging holds the log-forwarding destinations for application and
// operations streams, plus the agent tuning carried into its rendered
// configuration.
type Logging struct {
	AppHost string `yaml:"appHost"`
	AppPort int    `yaml:"appPort"`
	OpsHost string `yaml:"opsHost"`
	OpsPort int    `yaml:"opsPort"`

	// SharedKey authenticates the secure-forward connection.
	SharedKey string `yaml:"sharedKey"`

	// Throttle limits per-project read rates in the agent.
	Throttle []ThrottleEntry `yaml:"throttle"`
}

// ThrottleEntry caps how many log lines per second are read for a project.
type ThrottleEntry struct {
	Name           string `yaml:"name"`
	ReadLinesLimit int    `yaml:"readLinesLimit"`
}

// Selector is a single node label pair.
type Selector struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Credentials describes a registry login to provision on each node.
type Credentials struct {
	Registry string `yaml:"registry"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Replace forces rewriting an existing credential file.
	Replace bool `yaml:"replace"`
}
