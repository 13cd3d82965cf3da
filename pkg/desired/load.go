package desired

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the desired state with stack defaults applied. Loaded
// documents and CLI flags overlay these values.
func Default() State {
	return State{
		Mode:            ModeInstall,
		DeploymentType:  "origin",
		MinimumVersion:  "1.9.1",
		UpgradeBoundary: "1.10",
		Options: Options{
			SELinuxEnabled: true,
			LogDriver:      "json-file",
			LogOpts: []KeyValue{
				{Key: "max-size", Value: "50m"},
			},
			VerifySigs: false,
		},
	}
}

// FromFile loads a desired-state document from a YAML file, overlaying the
// stack defaults. The result is not validated; callers run Validate once all
// overrides are applied.
func FromFile(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("failed to read desired state file: %w", err)
	}

	state := Default()
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("failed to parse desired state file %q: %w", path, err)
	}

	return state, nil
}
