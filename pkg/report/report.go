/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package report aggregates per-node rollout results into the run summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/clusterops/nodectl/pkg/rollout"
)

// Format selects the summary output encoding.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// IsUnknown reports whether the format is not one of the supported values.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatYAML, FormatJSON, FormatTable:
		return false
	}
	return true
}

// RunOutcome is the overall verdict for a run.
type RunOutcome string

const (
	RunSucceeded RunOutcome = "Succeeded"
	RunFailed    RunOutcome = "Failed"
)

// Summary is the aggregated run report. Individual results are never
// mutated after aggregation.
type Summary struct {
	RunID   string     `json:"runId" yaml:"runId"`
	Outcome RunOutcome `json:"outcome" yaml:"outcome"`

	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`

	// FailingNodes lists the failed nodes with their diagnostics.
	FailingNodes []rollout.Result `json:"failingNodes,omitempty" yaml:"failingNodes,omitempty"`

	Results []rollout.Result `json:"results" yaml:"results"`
}

// Summarize aggregates results. The run is Failed if any node failed, else
// Succeeded.
func Summarize(runID string, results []rollout.Result) Summary {
	summary := Summary{
		RunID:   runID,
		Outcome: RunSucceeded,
		Results: results,
	}

	for _, result := range results {
		switch result.Outcome {
		case rollout.Succeeded:
			summary.Succeeded++
		case rollout.Failed:
			summary.Failed++
			summary.FailingNodes = append(summary.FailingNodes, result)
		case rollout.Skipped:
			summary.Skipped++
		}
	}

	if summary.Failed > 0 {
		summary.Outcome = RunFailed
	}

	runsTotal.WithLabelValues(string(summary.Outcome)).Inc()
	return summary
}

// Write encodes the summary in the requested format.
func (s Summary) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode summary as json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode summary as yaml: %w", err)
		}
	case FormatTable:
		return s.writeTable(w)
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
	return nil
}

func (s Summary) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RUN\t%s\t%s\n", s.RunID, s.Outcome)
	fmt.Fprintf(tw, "NODE\tOUTCOME\tDETAIL\n")
	for _, result := range s.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", result.Node, result.Outcome, result.Detail)
	}
	fmt.Fprintf(tw, "TOTAL\t%d succeeded, %d failed, %d skipped\t\n",
		s.Succeeded, s.Failed, s.Skipped)
	return tw.Flush()
}
