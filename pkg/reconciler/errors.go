package reconciler

import (
	"fmt"

	"github.com/clusterops/nodectl/pkg/versiongate"
)

// VersionGateError reports a version-policy veto. Fatal: the run aborts
// before any install or cluster mutation, and is never retried.
type VersionGateError struct {
	Verdict   versiongate.Verdict
	Installed string
	Requested string
}

func (e *VersionGateError) Error() string {
	return fmt.Sprintf("version gate rejected the run: %s (installed %q, requested %q)",
		e.Verdict, e.Installed, e.Requested)
}
