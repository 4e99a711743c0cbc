// Package report aggregates the outcome of a bootstrap run.
//
// A BootstrapReport records per-phase status, per-host command results,
// the derived cluster state, and the first failure reason. It is the
// only artifact persisted across invocations: a prior report lets a
// re-run skip phases that already succeeded. The join credential never
// appears in a report.
package report

import (
	"time"
)

// Status is the lifecycle state of a phase.
type Status string

const (
	// StatusPending means the phase has not started.
	StatusPending Status = "pending"
	// StatusRunning means the phase is executing.
	StatusRunning Status = "running"
	// StatusSucceeded means every required host result and the phase's
	// readiness gate (if any) reported success.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the phase failed and halted the sequence.
	StatusFailed Status = "failed"
)

// Overall is the aggregate outcome of the whole run.
type Overall string

const (
	// OverallSucceeded means every phase succeeded.
	OverallSucceeded Overall = "succeeded"
	// OverallFailed means a phase failed and the sequence halted.
	OverallFailed Overall = "failed"
	// OverallCancelled means the run was cancelled cooperatively.
	OverallCancelled Overall = "cancelled"
)

// HostResult is the serializable record of one command on one host.
// Append-only: results are recorded once and never mutated.
type HostResult struct {
	Host        string        `json:"host"`
	Command     string        `json:"command"`
	ExitCode    int           `json:"exitCode"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completedAt"`
	State       string        `json:"state"`
	Detail      string        `json:"detail,omitempty"`
}

// GateOutcome records the final state of a phase's readiness gate.
type GateOutcome struct {
	Probe      string        `json:"probe"`
	Ready      bool          `json:"ready"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
	LastDetail string        `json:"lastDetail,omitempty"`
}

// PhaseRecord is the aggregated outcome of one phase.
type PhaseRecord struct {
	Name          string       `json:"name"`
	Target        string       `json:"target"`
	Status        Status       `json:"status"`
	Results       []HostResult `json:"results,omitempty"`
	Gate          *GateOutcome `json:"gate,omitempty"`
	StartedAt     time.Time    `json:"startedAt,omitzero"`
	CompletedAt   time.Time    `json:"completedAt,omitzero"`
	Resumed       bool         `json:"resumed,omitempty"`
	FailureReason string       `json:"failureReason,omitempty"`
}

// Report is the aggregated record of a bootstrap run.
type Report struct {
	RunID        string         `json:"runId"`
	ClusterName  string         `json:"clusterName"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  time.Time      `json:"completedAt,omitzero"`
	Phases       []*PhaseRecord `json:"phases"`
	Overall      Overall        `json:"overall"`
	ClusterState []string       `json:"clusterState,omitempty"`
	// FailureReason is the human-diagnosable reason at the first failed
	// phase, if any.
	FailureReason string `json:"failureReason,omitempty"`
}

// New creates a report with all named phases pending.
func New(runID, clusterName string, phaseNames []string, targets []string) *Report {
	r := &Report{
		RunID:       runID,
		ClusterName: clusterName,
		StartedAt:   time.Now(),
	}
	for i, name := range phaseNames {
		target := ""
		if i < len(targets) {
			target = targets[i]
		}
		r.Phases = append(r.Phases, &PhaseRecord{Name: name, Target: target, Status: StatusPending})
	}
	return r
}

// Phase returns the record for the named phase, or nil.
func (r *Report) Phase(name string) *PhaseRecord {
	for _, p := range r.Phases {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PhaseSucceeded reports whether the named phase succeeded in this
// report. Used when resuming from a prior run.
func (r *Report) PhaseSucceeded(name string) bool {
	p := r.Phase(name)
	return p != nil && p.Status == StatusSucceeded
}

// FirstFailure returns the first failed phase record, or nil.
func (r *Report) FirstFailure() *PhaseRecord {
	for _, p := range r.Phases {
		if p.Status == StatusFailed {
			return p
		}
	}
	return nil
}
