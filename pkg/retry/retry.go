/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package retry provides the bounded fixed-delay retry policy used for
// node-local operations such as service restarts.
package retry

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Policy bounds an operation to a number of attempts with a fixed delay
// between them. Cancelling the context during a delay aborts the remaining
// attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Default is the restart policy: 3 attempts, 30 seconds apart.
var Default = Policy{Attempts: 3, Delay: 30 * time.Second}

// Do runs op until it succeeds, the attempts are exhausted, or the context
// is cancelled. The returned error is the last failure from op, or the
// context error when cancelled mid-wait.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := wait.Backoff{
		Duration: p.Delay,
		Factor:   1.0,
		Steps:    p.Attempts,
	}

	var lastErr error
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		if lastErr = op(ctx); lastErr != nil {
			return false, nil
		}
		return true, nil
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil {
			return fmt.Errorf("aborted after failure %q: %w", lastErr, ctxErr)
		}
		return ctxErr
	}
	return fmt.Errorf("exhausted %d attempts: %w", p.Attempts, lastErr)
}
