package deploy

import (
	"time"

	"github.com/BaSui01/fabricflow/types"
)

// ActionFailure records one action that could not be completed.
type ActionFailure struct {
	Identity types.Identity
	Kind     types.ActionKind
	Err      error
}

// RunReport summarizes one deployment run.
type RunReport struct {
	// RunID uniquely identifies the run across log lines and metrics.
	RunID string
	// Workspace is the target workspace id.
	Workspace string
	// Started is the run start time.
	Started time.Time
	// Duration is the total run wall-clock time.
	Duration time.Duration

	// Created, Updated, Deleted and Skipped count completed actions.
	// Skipped includes planned skips, remote no-op signals, and deletes
	// withheld after an upsert failure.
	Created int
	Updated int
	Deleted int
	Skipped int
	// Failed counts actions that errored or were blocked by a failed
	// dependency.
	Failed int

	// Failures holds one entry per failed action.
	Failures []ActionFailure
}

// Succeeded reports whether every action completed.
func (r *RunReport) Succeeded() bool { return r.Failed == 0 }

// Status is the run outcome label used in logs and metrics.
func (r *RunReport) Status() string {
	if r.Succeeded() {
		return "success"
	}
	return "failed"
}

func (r *RunReport) fail(a types.DeploymentAction, err error) {
	r.Failed++
	r.Failures = append(r.Failures, ActionFailure{
		Identity: a.Identity,
		Kind:     a.Kind,
		Err:      err,
	})
}
