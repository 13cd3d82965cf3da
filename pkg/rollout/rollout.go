/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package rollout sequences per-node convergence across the fleet. Nodes are
// processed strictly one at a time: a node fully settles (or fails) before
// the next begins, trading throughput for a bounded blast radius.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/clusterops/nodectl/pkg/cluster"
	"github.com/clusterops/nodectl/pkg/desired"
)

// Phase is a node's position in the rollout state machine.
type Phase string

const (
	PhasePending      Phase = "Pending"
	PhaseLabeled      Phase = "Labeled"
	PhaseWaitingReady Phase = "WaitingReady"
	PhaseReady        Phase = "Ready"
	PhaseTimedOut     Phase = "TimedOut"
)

// Outcome is the terminal result for one node.
type Outcome string

const (
	Succeeded Outcome = "Succeeded"
	Failed    Outcome = "Failed"
	Skipped   Outcome = "Skipped"
)

// Result records how one node finished. Results are immutable once created.
type Result struct {
	Node    string  `json:"node" yaml:"node"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Detail  string  `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// TimeoutError reports a node that did not reach Ready within the window.
// The node is marked Failed; the rollout continues with the next node.
type TimeoutError struct {
	Node    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %s did not become ready within %s", e.Node, e.Timeout)
}

// ConvergeFunc converges a single node. A non-nil error is fatal to that
// node only.
type ConvergeFunc func(ctx context.Context, node string) error

// Rollout drives the fleet.
type Rollout struct {
	Cluster  cluster.API
	Selector desired.Selector
	Converge ConvergeFunc

	// ReadyTimeout bounds the per-node readiness wait.
	ReadyTimeout time.Duration

	// PollInterval paces readiness queries against the control plane.
	PollInterval time.Duration
}

// New returns a rollout with the stack's default pacing.
func New(api cluster.API, selector desired.Selector, converge ConvergeFunc) *Rollout {
	return &Rollout{
		Cluster:      api,
		Selector:     selector,
		Converge:     converge,
		ReadyTimeout: 10 * time.Minute,
		PollInterval: 5 * time.Second,
	}
}

// Run processes the given node targets in input order. The sentinel "all"
// substitutes a live node-list query. A failed node never blocks subsequent
// nodes; a cancelled context marks the current node Failed and the rest
// Skipped.
func (r *Rollout) Run(ctx context.Context, nodes []string) ([]Result, error) {
	targets, err := r.expandTargets(ctx, nodes)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(targets))
	for i, node := range targets {
		if ctx.Err() != nil {
			for _, remaining := range targets[i:] {
				results = append(results, Result{
					Node:    remaining,
					Outcome: Skipped,
					Detail:  "run cancelled",
				})
				nodeOutcomes.WithLabelValues(string(Skipped)).Inc()
			}
			break
		}

		result := r.runNode(ctx, node)
		nodeOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		results = append(results, result)
	}
	return results, nil
}

func (r *Rollout) expandTargets(ctx context.Context, nodes []string) ([]string, error) {
	if len(nodes) == 1 && nodes[0] == desired.NodesAll {
		listed, err := r.Cluster.ListNodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q node target: %w", desired.NodesAll, err)
		}
		slog.Debug("expanded node targets", slog.Int("count", len(listed)))
		return listed, nil
	}
	return nodes, nil
}

func (r *Rollout) runNode(ctx context.Context, node string) Result {
	phase := PhasePending
	logPhase := func(next Phase) {
		slog.Debug("rollout phase transition",
			slog.String("node", node),
			slog.String("from", string(phase)),
			slog.String("to", string(next)),
		)
		phase = next
	}

	if err := r.Converge(ctx, node); err != nil {
		slog.Error("node convergence failed", slog.String("node", node), slog.String("error", err.Error()))
		return Result{Node: node, Outcome: Failed, Detail: err.Error()}
	}

	if err := r.Cluster.LabelNode(ctx, node, r.Selector.Key, r.Selector.Value); err != nil {
		slog.Error("node labeling failed", slog.String("node", node), slog.String("error", err.Error()))
		return Result{Node: node, Outcome: Failed, Detail: err.Error()}
	}
	logPhase(PhaseLabeled)

	logPhase(PhaseWaitingReady)
	if err := r.waitReady(ctx, node); err != nil {
		logPhase(PhaseTimedOut)
		return Result{Node: node, Outcome: Failed, Detail: err.Error()}
	}

	logPhase(PhaseReady)
	return Result{Node: node, Outcome: Succeeded}
}

// waitReady polls the node's readiness, paced by PollInterval, until it is
// ready, the window elapses, or the run is cancelled.
func (r *Rollout) waitReady(ctx context.Context, node string) error {
	ctx, cancel := context.WithTimeout(ctx, r.ReadyTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(r.PollInterval), 1)
	for {
		ready, err := r.Cluster.GetNodeReadiness(ctx, node)
		if err != nil {
			return fmt.Errorf("readiness query for %q failed: %w", node, err)
		}
		if ready {
			return nil
		}

		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return fmt.Errorf("readiness wait for %q cancelled: %w", node, ctx.Err())
			}
			return &TimeoutError{Node: node, Timeout: r.ReadyTimeout}
		}
	}
}
