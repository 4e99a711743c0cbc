// Package sequencer drives the ordered bootstrap phases.
//
// A single coordinating goroutine walks the phase list; within a phase,
// execution fans out across the targeted hosts concurrently. No phase
// N+1 command is issued before every required result for phase N is
// collected and the phase has succeeded. Partial failure is a
// first-class, inspectable outcome recorded in the report, not an
// abrupt process exit.
package sequencer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kubeplatform/kubestrap/internal/config"
	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/metrics"
	"github.com/kubeplatform/kubestrap/internal/observe"
	"github.com/kubeplatform/kubestrap/internal/readiness"
	"github.com/kubeplatform/kubestrap/internal/remote"
	"github.com/kubeplatform/kubestrap/internal/report"
	"github.com/kubeplatform/kubestrap/internal/util/async"
	"github.com/kubeplatform/kubestrap/internal/util/retry"
)

// Options configures one sequence run.
type Options struct {
	// Prior, when set, is the persisted report of an earlier run:
	// phases it records as succeeded are skipped.
	Prior *report.Report
	// Force re-executes phases even when Prior marks them succeeded.
	Force bool
}

// Sequencer executes phases against the inventory.
type Sequencer struct {
	inv      *inventory.Inventory
	runner   remote.Runner
	obs      observe.Observer
	timeouts *config.Timeouts
}

// New creates a Sequencer.
func New(inv *inventory.Inventory, runner remote.Runner, obs observe.Observer, timeouts *config.Timeouts) *Sequencer {
	if obs == nil {
		obs = observe.NopObserver{}
	}
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	return &Sequencer{inv: inv, runner: runner, obs: obs, timeouts: timeouts}
}

// Run executes the phases in order and returns the finalized report.
// The first failed phase halts the sequence; later phases stay pending.
func (s *Sequencer) Run(ctx context.Context, runID, clusterName string, phases []Phase, opts Options) *report.Report {
	names := make([]string, len(phases))
	targets := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
		targets[i] = string(p.Target)
	}
	rep := report.New(runID, clusterName, names, targets)

	for i := range phases {
		phase := &phases[i]
		rec := rep.Phases[i]

		if ctx.Err() != nil {
			break
		}

		if !opts.Force && opts.Prior != nil && opts.Prior.PhaseSucceeded(phase.Name) {
			rec.Status = report.StatusSucceeded
			rec.Resumed = true
			// Carry the prior run's evidence forward: cluster membership
			// is derived from recorded host results, never from the skip
			// itself.
			if prior := opts.Prior.Phase(phase.Name); prior != nil {
				rec.Results = prior.Results
				rec.Gate = prior.Gate
				rec.StartedAt = prior.StartedAt
				rec.CompletedAt = prior.CompletedAt
			}
			s.obs.Event(observe.Event{
				Type:    observe.EventPhaseSkipped,
				Phase:   phase.Name,
				Message: "already succeeded in a prior run",
			})
			continue
		}

		s.runPhase(ctx, phase, rec)
		metrics.RecordPhase(phase.Name, string(rec.Status), rec.CompletedAt.Sub(rec.StartedAt).Seconds())

		if rec.Status == report.StatusFailed {
			rep.FailureReason = fmt.Sprintf("phase %s: %s", phase.Name, rec.FailureReason)
			break
		}
	}

	s.finalize(ctx, rep, phases)
	return rep
}

// finalize computes the overall outcome and the derived cluster state.
func (s *Sequencer) finalize(ctx context.Context, rep *report.Report, phases []Phase) {
	rep.CompletedAt = time.Now()

	switch {
	case ctx.Err() != nil:
		rep.Overall = report.OverallCancelled
		if rep.FailureReason == "" {
			rep.FailureReason = "run cancelled"
		}
	case rep.FirstFailure() != nil:
		rep.Overall = report.OverallFailed
	default:
		rep.Overall = report.OverallSucceeded
		for _, rec := range rep.Phases {
			if rec.Status != report.StatusSucceeded {
				rep.Overall = report.OverallFailed
			}
		}
	}

	rep.ClusterState = s.clusterState(rep, phases)
}

// clusterState derives the set of hosts that became cluster members:
// hosts that completed a registering phase that itself succeeded. For a
// fail-fast registering phase, success means every targeted host made
// it (commands or the confirming gate); for a best-effort phase only
// the hosts whose own commands succeeded are members.
func (s *Sequencer) clusterState(rep *report.Report, phases []Phase) []string {
	var members []string
	seen := make(map[string]bool)

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			members = append(members, name)
		}
	}

	for i := range phases {
		phase := &phases[i]
		rec := rep.Phases[i]
		if !phase.Registers || rec.Status != report.StatusSucceeded {
			continue
		}
		if !phase.BestEffort {
			for _, h := range s.targetHosts(phase.Target) {
				add(h.Name)
			}
			continue
		}
		for _, h := range s.targetHosts(phase.Target) {
			if hostSucceeded(rec, h.Name) {
				add(h.Name)
			}
		}
	}
	return members
}

// hostSucceeded reports whether every recorded result for the host in
// this phase succeeded and at least one was recorded.
func hostSucceeded(rec *report.PhaseRecord, host string) bool {
	found := false
	for _, res := range rec.Results {
		if res.Host != host {
			continue
		}
		found = true
		if res.State != string(remote.StateSucceeded) {
			return false
		}
	}
	return found
}

func (s *Sequencer) targetHosts(target Target) []inventory.Host {
	switch target {
	case TargetControlPlane:
		return []inventory.Host{s.inv.ControlPlane()}
	case TargetWorkers:
		return s.inv.Workers()
	default:
		return s.inv.All()
	}
}

// hostOutcome accumulates one host's results within a phase.
type hostOutcome struct {
	host     string
	results  []remote.Result
	ok       bool // every command succeeded
	timedOut bool // a command timed out; remote state unknown
	skipped  bool // cancelled before dispatch
}

// runPhase executes one phase: optional setup, concurrent host
// fan-out, readiness gate, then the success policy.
func (s *Sequencer) runPhase(ctx context.Context, phase *Phase, rec *report.PhaseRecord) {
	rec.Status = report.StatusRunning
	rec.StartedAt = time.Now()
	s.obs.Event(observe.Event{Type: observe.EventPhaseStarted, Phase: phase.Name, Message: "starting"})

	fail := func(reason string) {
		rec.Status = report.StatusFailed
		rec.FailureReason = reason
		rec.CompletedAt = time.Now()
		s.obs.Event(observe.Event{Type: observe.EventPhaseFailed, Phase: phase.Name, Message: reason})
	}

	hosts := s.targetHosts(phase.Target)

	// A phase with nothing to target is trivially complete: a
	// control-plane-only inventory has no workers to join. Setup is
	// skipped too, so no credential is minted for nobody.
	if len(hosts) == 0 {
		rec.Status = report.StatusSucceeded
		rec.CompletedAt = time.Now()
		s.obs.Event(observe.Event{
			Type:    observe.EventPhaseSucceeded,
			Phase:   phase.Name,
			Message: "no targeted hosts",
		})
		return
	}

	if phase.Setup != nil {
		if err := phase.Setup(ctx); err != nil {
			fail(err.Error())
			return
		}
	}
	outcomes := s.fanOut(ctx, phase, hosts)

	for _, outcome := range outcomes {
		for _, res := range outcome.results {
			rec.Results = append(rec.Results, toHostResult(res))
		}
	}

	cancelled := ctx.Err() != nil
	var succeeded, failed, timedOut, skipped int
	var firstFailedHost string
	for _, outcome := range outcomes {
		switch {
		case outcome.skipped:
			skipped++
		case outcome.ok:
			succeeded++
		case outcome.timedOut:
			timedOut++
		default:
			failed++
			if firstFailedHost == "" {
				firstFailedHost = outcome.host
			}
		}
	}

	if cancelled {
		fail(fmt.Sprintf("cancelled: %d of %d hosts not dispatched", skipped, len(hosts)))
		return
	}

	// A timed-out command is never re-issued. Its host is confirmed or
	// condemned by the phase's readiness gate; without a gate the
	// unknown state cannot count as success.
	gateReady := false
	if phase.Probe != nil {
		outcome := s.awaitGate(ctx, phase)
		rec.Gate = &report.GateOutcome{
			Probe:      phase.Probe.Name(),
			Ready:      outcome.Ready,
			Attempts:   outcome.Attempts,
			Elapsed:    outcome.Elapsed,
			LastDetail: outcome.LastDetail,
		}
		metrics.RecordGate(phase.Name, outcome.Ready, outcome.Attempts)
		gateReady = outcome.Ready
	}

	effective := succeeded
	if gateReady {
		effective += timedOut
	}

	if phase.BestEffort {
		if effective == 0 {
			fail(fmt.Sprintf("no host completed (failed=%d, timed out=%d)", failed, timedOut))
			return
		}
	} else {
		if failed > 0 {
			fail(fmt.Sprintf("host %s failed", firstFailedHost))
			return
		}
		if effective < len(hosts) {
			fail(fmt.Sprintf("%d of %d hosts did not complete", len(hosts)-effective, len(hosts)))
			return
		}
	}

	if phase.Probe != nil && !gateReady {
		fail(fmt.Sprintf("readiness gate %s timed out after %v: %s",
			rec.Gate.Probe, rec.Gate.Elapsed.Round(time.Millisecond), rec.Gate.LastDetail))
		return
	}

	rec.Status = report.StatusSucceeded
	rec.CompletedAt = time.Now()
	s.obs.Event(observe.Event{
		Type:    observe.EventPhaseSucceeded,
		Phase:   phase.Name,
		Message: fmt.Sprintf("completed in %v", rec.CompletedAt.Sub(rec.StartedAt).Round(time.Millisecond)),
	})
}

// fanOut runs the phase's commands on every targeted host
// concurrently. Cancellation is cooperative: hosts not yet dispatched
// are skipped, but commands already in flight are awaited so their
// remote side effects are observed.
func (s *Sequencer) fanOut(ctx context.Context, phase *Phase, hosts []inventory.Host) []hostOutcome {
	outcomes := make([]hostOutcome, len(hosts))
	tasks := make([]async.Task, len(hosts))

	for i, host := range hosts {
		tasks[i] = async.Task{
			Name: host.Name,
			Func: func(ctx context.Context) error {
				outcomes[i] = s.runHost(ctx, phase, host)
				return nil
			},
		}
	}

	async.RunAll(ctx, tasks)
	return outcomes
}

// runHost executes the phase's commands on one host sequentially.
func (s *Sequencer) runHost(ctx context.Context, phase *Phase, host inventory.Host) hostOutcome {
	outcome := hostOutcome{host: host.Name}

	if ctx.Err() != nil {
		outcome.skipped = true
		outcome.results = append(outcome.results, remote.Result{
			Host:        host.Name,
			State:       remote.StateUnknown,
			CompletedAt: time.Now(),
			Detail:      "cancelled before dispatch",
		})
		return outcome
	}

	commands, err := phase.Commands(host)
	if err != nil {
		outcome.results = append(outcome.results, remote.Result{
			Host:        host.Name,
			State:       remote.StateFailed,
			CompletedAt: time.Now(),
			Detail:      err.Error(),
		})
		return outcome
	}

	timeout := phase.CommandTimeout
	if timeout == 0 {
		timeout = s.timeouts.Command
	}

	// Once dispatched, a command is awaited even if the run is
	// cancelled, so its remote side effects are never left unobserved.
	detached := context.WithoutCancel(ctx)

	for _, command := range commands {
		if ctx.Err() != nil {
			outcome.skipped = true
			outcome.results = append(outcome.results, remote.Result{
				Host:        host.Name,
				Command:     command,
				State:       remote.StateUnknown,
				CompletedAt: time.Now(),
				Detail:      "cancelled before dispatch",
			})
			return outcome
		}

		s.obs.Event(observe.Event{Type: observe.EventCommandDispatched, Phase: phase.Name, Host: host.Name})
		res, err := s.runCommand(detached, phase, host, command, timeout)
		if phase.Redact != nil {
			res.Command = phase.Redact(res.Command)
			res.Stdout = phase.Redact(res.Stdout)
			res.Stderr = phase.Redact(res.Stderr)
			res.Detail = phase.Redact(res.Detail)
		}
		outcome.results = append(outcome.results, res)
		metrics.RecordCommand(host.Name, string(res.State), res.Duration.Seconds())
		s.obs.Event(observe.Event{
			Type:    observe.EventCommandCompleted,
			Phase:   phase.Name,
			Host:    host.Name,
			Message: string(res.State),
		})

		if remote.IsTimeout(err) {
			outcome.timedOut = true
			return outcome
		}
		if !res.Succeeded() {
			return outcome
		}
	}

	outcome.ok = true
	return outcome
}

// runCommand executes one command, retrying connectivity failures with
// bounded exponential backoff. Timeouts are never retried here: the
// remote state is unknown and only a readiness check may decide it.
func (s *Sequencer) runCommand(ctx context.Context, phase *Phase, host inventory.Host, command string, timeout time.Duration) (remote.Result, error) {
	var res remote.Result
	var runErr error

	err := retry.Do(ctx, func() error {
		res, runErr = s.runner.Run(ctx, host, command, timeout)
		if runErr == nil {
			return nil
		}
		if remote.IsConnectivity(runErr) {
			s.obs.Event(observe.Event{
				Type:    observe.EventCommandRetrying,
				Phase:   phase.Name,
				Host:    host.Name,
				Message: runErr.Error(),
			})
			return runErr
		}
		return retry.Permanent(runErr)
	},
		retry.WithMaxAttempts(s.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(s.timeouts.RetryInitialDelay),
	)

	if err != nil && remote.IsConnectivity(err) {
		// Retries exhausted without reaching the host: no remote side
		// effect happened, so this is a plain failure.
		res.State = remote.StateFailed
		if res.Detail == "" {
			res.Detail = err.Error()
		}
		return res, nil
	}
	return res, runErr
}

// awaitGate polls the phase's readiness probe.
func (s *Sequencer) awaitGate(ctx context.Context, phase *Phase) readiness.Outcome {
	interval := phase.GateInterval
	if interval == 0 {
		interval = s.timeouts.ProbeInterval
	}
	timeout := phase.GateTimeout
	if timeout == 0 {
		timeout = s.timeouts.Gate
	}

	s.obs.Event(observe.Event{Type: observe.EventProbeWaiting, Phase: phase.Name, Message: phase.Probe.Name()})
	outcome := readiness.Await(ctx, phase.Probe, interval, timeout)

	eventType := observe.EventProbeReady
	if !outcome.Ready {
		eventType = observe.EventProbeTimedOut
	}
	s.obs.Event(observe.Event{
		Type:    eventType,
		Phase:   phase.Name,
		Message: strings.TrimSpace(outcome.LastDetail),
	})
	return outcome
}

// toHostResult converts an executor result to its report form.
func toHostResult(res remote.Result) report.HostResult {
	return report.HostResult{
		Host:        res.Host,
		Command:     res.Command,
		ExitCode:    res.ExitCode,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		Duration:    res.Duration,
		CompletedAt: res.CompletedAt,
		State:       string(res.State),
		Detail:      res.Detail,
	}
}
