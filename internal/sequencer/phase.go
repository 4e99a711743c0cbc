package sequencer

import (
	"context"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/readiness"
)

// Target selects which host-role subset a phase runs on.
type Target string

const (
	// TargetControlPlane runs the phase on the control-plane host only.
	TargetControlPlane Target = "control-plane"
	// TargetWorkers runs the phase on every worker host.
	TargetWorkers Target = "workers"
	// TargetAll runs the phase on every host.
	TargetAll Target = "all"
)

// Phase is one ordered, host-scoped unit of the bootstrap sequence.
// Phases form a strict total order: a phase only begins once all prior
// phases have succeeded.
type Phase struct {
	Name   string
	Target Target

	// Setup runs once before the host fan-out. The worker-join phase
	// uses it to mint the join credential; a Setup failure fails the
	// phase before any per-host command is issued.
	Setup func(ctx context.Context) error

	// Commands returns the commands to execute on host, in order.
	// Returning an error fails that host without dispatching anything
	// (e.g. the join credential expired before this host's turn).
	Commands func(host inventory.Host) ([]string, error)

	// CommandTimeout bounds each command; zero uses the sequencer
	// default.
	CommandTimeout time.Duration

	// Redact, when set, scrubs secrets from a recorded result field
	// before it enters the report. The worker-join phase uses it to keep
	// the join credential out of every persisted command string.
	Redact func(s string) string

	// Probe, when set, gates phase success: the phase only succeeds
	// once the probe reports ready. A phase without a probe succeeds
	// purely on command results.
	Probe        readiness.Probe
	GateInterval time.Duration
	GateTimeout  time.Duration

	// BestEffort tolerates partial host failure: the phase succeeds if
	// at least one targeted host succeeds, recording the failures.
	// Fail-fast is the default.
	BestEffort bool

	// Registers marks phases whose succeeding hosts become cluster
	// members (control-plane init, worker join). Used to derive the
	// final cluster state.
	Registers bool
}
