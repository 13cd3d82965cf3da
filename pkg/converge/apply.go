package converge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clusterops/nodectl/pkg/sysd"
)

// Result is the outcome of applying a plan.
type Result struct {
	// Changed reports whether any file content actually changed on disk.
	// Applying the same plan twice yields true then false.
	Changed bool

	// RestartRequired reports whether the runtime service needed a restart
	// as a consequence of this apply.
	RestartRequired bool

	// ServiceStatusChanged is true only when the apply changed something
	// AND the baseline service was not already active. The service manager
	// reports a synthetic status change whenever a unit is started from
	// inactive, so comparing against the pre-apply baseline is what keeps
	// "restart occurred" signals honest.
	ServiceStatusChanged bool
}

// Apply executes the plan's writes and sequences the service restart. The
// baseline service state is captured before any reconfiguration.
func (e *Engine) Apply(ctx context.Context, plan Plan) (Result, error) {
	start := time.Now()
	defer func() {
		applyDuration.Observe(time.Since(start).Seconds())
	}()

	baseline, err := e.Services.GetActiveState(ctx, e.Service)
	if err != nil {
		return Result{}, &ApplyError{Node: e.Node, Err: fmt.Errorf("failed to read baseline service state: %w", err)}
	}
	baselineActive := baseline == sysd.ActiveStateActive

	changed := false
	for _, write := range plan.Writes {
		wrote, err := writeIfDifferent(write)
		if err != nil {
			return Result{}, &ApplyError{Node: e.Node, Err: err}
		}
		changed = changed || wrote
	}

	result := Result{
		Changed:              changed,
		RestartRequired:      changed && plan.RestartRequired,
		ServiceStatusChanged: changed && !baselineActive,
	}

	switch {
	case !baselineActive:
		slog.Debug("starting runtime service",
			slog.String("node", e.Node), slog.String("service", e.Service))
		if err := e.retryServiceOp(ctx, e.Services.Start); err != nil {
			return Result{}, &RestartError{Node: e.Node, Service: e.Service, Err: err}
		}
	case result.RestartRequired:
		slog.Debug("restarting runtime service",
			slog.String("node", e.Node), slog.String("service", e.Service))
		if err := e.retryServiceOp(ctx, e.Services.Restart); err != nil {
			return Result{}, &RestartError{Node: e.Node, Service: e.Service, Err: err}
		}
	}

	slog.Info("converged node",
		slog.String("node", e.Node),
		slog.Bool("changed", result.Changed),
		slog.Bool("restart_required", result.RestartRequired),
		slog.Bool("service_status_changed", result.ServiceStatusChanged),
	)
	return result, nil
}

func (e *Engine) retryServiceOp(ctx context.Context, op func(ctx context.Context, unit string) error) error {
	return e.Retry.Do(ctx, func(ctx context.Context) error {
		restartAttempts.Inc()
		return op(ctx, e.Service)
	})
}

// writeIfDifferent writes the file only when its current content differs,
// reporting whether a write happened.
func writeIfDifferent(write FileWrite) (bool, error) {
	current, err := os.ReadFile(write.Path)
	if err == nil && string(current) == write.Content {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %q: %w", write.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(write.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %q: %w", write.Path, err)
	}
	if err := os.WriteFile(write.Path, []byte(write.Content), write.Mode); err != nil {
		return false, fmt.Errorf("failed to write %q: %w", write.Path, err)
	}
	return true, nil
}
