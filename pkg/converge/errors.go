package converge

import "fmt"

// ApplyError reports a failed configuration write. Fatal to the node being
// converged, never to its siblings.
type ApplyError struct {
	Node string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply failed on %s: %v", e.Node, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// RestartError reports a service restart that failed after the retry policy
// was exhausted. Fatal to the node.
type RestartError struct {
	Node    string
	Service string
	Err     error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restart of %s failed on %s: %v", e.Service, e.Node, e.Err)
}

func (e *RestartError) Unwrap() error { return e.Err }

// CredentialError reports failed registry credential provisioning. Fatal to
// the node.
type CredentialError struct {
	Node string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential provisioning failed on %s: %v", e.Node, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }
