// Package readiness gates phase advancement on boolean health probes.
//
// A gate polls a side-effect-free probe at a fixed interval until the
// probe reports ready or the gate times out. Timing out is a normal,
// reportable outcome, not an error: the sequencer needs the diagnostic
// state to produce an actionable report.
package readiness

import (
	"context"
	"time"
)

// Probe is a side-effect-free boolean health check.
type Probe interface {
	// Name identifies the probe in logs and reports.
	Name() string

	// Check returns whether the probed condition holds, plus a short
	// human-readable detail for diagnostics.
	Check(ctx context.Context) (ok bool, detail string)
}

// Outcome is the structured result of awaiting a gate.
type Outcome struct {
	Ready      bool
	Attempts   int
	Elapsed    time.Duration
	LastDetail string
}

// Await polls probe every interval until it reports ready, the timeout
// elapses, or the context is cancelled. The probe is checked once
// immediately before the first interval.
func Await(ctx context.Context, probe Probe, interval, timeout time.Duration) Outcome {
	start := time.Now()
	outcome := Outcome{}

	check := func() bool {
		outcome.Attempts++
		ok, detail := probe.Check(ctx)
		outcome.LastDetail = detail
		if ok {
			outcome.Ready = true
			outcome.Elapsed = time.Since(start)
		}
		return ok
	}

	if check() {
		return outcome
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			outcome.Elapsed = time.Since(start)
			outcome.LastDetail = "cancelled: " + ctx.Err().Error()
			return outcome
		case <-deadline.C:
			outcome.Elapsed = time.Since(start)
			return outcome
		case <-ticker.C:
			if check() {
				return outcome
			}
		}
	}
}
