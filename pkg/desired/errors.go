package desired

import "fmt"

// PreconditionError reports invalid desired-state input. It is fatal: the
// reconciler surfaces it before any cluster mutation is attempted.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}

func preconditionf(field, format string, args ...any) error {
	return &PreconditionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
