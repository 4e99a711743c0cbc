// Package handlers implements the CLI command logic.
//
// Handlers wire the configuration, executor, broker, and sequencer
// together; commands only parse flags and delegate here. Factory
// function variables allow tests to substitute fakes.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kubeplatform/kubestrap/internal/config"
	"github.com/kubeplatform/kubestrap/internal/manifest"
	"github.com/kubeplatform/kubestrap/internal/observe"
	"github.com/kubeplatform/kubestrap/internal/phases"
	"github.com/kubeplatform/kubestrap/internal/remote"
	"github.com/kubeplatform/kubestrap/internal/report"
	"github.com/kubeplatform/kubestrap/internal/sequencer"
	"github.com/kubeplatform/kubestrap/internal/token"
)

// Factory function variables - can be replaced in tests.
var (
	newRunner = func(timeouts *config.Timeouts) remote.Runner {
		return remote.NewSSHRunner(timeouts.DialTimeout)
	}
	newObserver = func() observe.Observer {
		return observe.NewConsoleObserver()
	}
	loadTimeouts = config.LoadTimeouts
)

// BootstrapOptions holds the bootstrap command flags.
type BootstrapOptions struct {
	InventoryPath string
	StateDir      string
	FromPhase     string
	OnlyPhase     string
	Force         bool
	DryRun        bool
	MetricsListen string
}

// Bootstrap runs the full bootstrap sequence against the inventory.
func Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	cfg, err := config.LoadFile(opts.InventoryPath)
	if err != nil {
		return err
	}
	inv, err := cfg.Inventory()
	if err != nil {
		return err
	}

	timeouts := loadTimeouts()
	runner := newRunner(timeouts)
	obs := newObserver()
	broker := token.NewBroker(runner, cfg.Token.MintCommand, cfg.Token.TTLDuration(), timeouts.Command)
	applier := manifest.NewApplier(runner).WithKubectl(config.Kubectl)

	plan := phases.Plan(cfg, inv, runner, broker, applier, obs, timeouts)
	plan, err = selectPhases(plan, opts.FromPhase, opts.OnlyPhase)
	if err != nil {
		return err
	}

	if opts.DryRun {
		printPlan(cfg, plan, inv.Len())
		return nil
	}

	if opts.MetricsListen != "" {
		go serveMetrics(opts.MetricsListen, obs)
	}

	store := report.NewStore(opts.StateDir)
	prior, err := store.Load(cfg.ClusterName)
	if err != nil {
		obs.Printf("warning: ignoring unreadable prior report: %v", err)
	}

	seq := sequencer.New(inv, runner, obs, timeouts)
	rep := seq.Run(ctx, cfg.ClusterName, cfg.ClusterName, plan, sequencer.Options{
		Prior: prior,
		Force: opts.Force,
	})

	// A --from-phase/--only-phase run covers a subset of the plan; fold
	// its records into the prior report so the untouched phases keep
	// their recorded outcomes for the next resume.
	saved := rep
	if opts.FromPhase != "" || opts.OnlyPhase != "" {
		saved = mergeReports(prior, rep)
	}
	if err := store.Save(saved); err != nil {
		obs.Printf("warning: failed to persist report: %v", err)
	}

	printSummary(rep)

	if rep.Overall != report.OverallSucceeded {
		return fmt.Errorf("bootstrap %s: %s", rep.Overall, rep.FailureReason)
	}
	return nil
}

// selectPhases applies the --from-phase / --only-phase selection.
func selectPhases(plan []sequencer.Phase, fromPhase, onlyPhase string) ([]sequencer.Phase, error) {
	if fromPhase != "" && onlyPhase != "" {
		return nil, fmt.Errorf("--from-phase and --only-phase are mutually exclusive")
	}

	if onlyPhase != "" {
		for _, p := range plan {
			if p.Name == onlyPhase {
				return []sequencer.Phase{p}, nil
			}
		}
		return nil, fmt.Errorf("unknown phase %q", onlyPhase)
	}

	if fromPhase != "" {
		for i, p := range plan {
			if p.Name == fromPhase {
				return plan[i:], nil
			}
		}
		return nil, fmt.Errorf("unknown phase %q", fromPhase)
	}

	return plan, nil
}

// mergeReports folds the records of run into prior, phase by phase, so
// a narrower run never discards outcomes it did not re-execute.
func mergeReports(prior, run *report.Report) *report.Report {
	if prior == nil {
		return run
	}

	for _, rec := range run.Phases {
		if existing := prior.Phase(rec.Name); existing != nil {
			*existing = *rec
		} else {
			prior.Phases = append(prior.Phases, rec)
		}
	}

	prior.CompletedAt = run.CompletedAt
	prior.Overall = run.Overall
	prior.FailureReason = run.FailureReason
	if prior.Overall == report.OverallSucceeded {
		if failed := prior.FirstFailure(); failed != nil {
			prior.Overall = report.OverallFailed
			prior.FailureReason = fmt.Sprintf("phase %s: %s", failed.Name, failed.FailureReason)
		}
	}

	// Membership established by either run stands.
	seen := make(map[string]bool, len(prior.ClusterState))
	for _, host := range prior.ClusterState {
		seen[host] = true
	}
	for _, host := range run.ClusterState {
		if !seen[host] {
			seen[host] = true
			prior.ClusterState = append(prior.ClusterState, host)
		}
	}
	return prior
}

// printPlan shows what a run would do, without touching any host.
func printPlan(cfg *config.Config, plan []sequencer.Phase, hostCount int) {
	fmt.Printf("Cluster %s: %d hosts, %d phases\n\n", cfg.ClusterName, hostCount, len(plan))
	for i, p := range plan {
		mode := "fail-fast"
		if p.BestEffort {
			mode = "best-effort"
		}
		fmt.Printf("%d. %s (target: %s, %s)\n", i+1, p.Name, p.Target, mode)
		if p.Probe != nil {
			fmt.Printf("   gate: %s\n", p.Probe.Name())
		}
	}
	fmt.Println("\nDry run: no commands were executed.")
}

// printSummary prints the per-phase outcome of a finished run.
func printSummary(rep *report.Report) {
	fmt.Println()
	fmt.Printf("Run %s: %s\n", rep.RunID, rep.Overall)
	for _, rec := range rep.Phases {
		suffix := ""
		if rec.Resumed {
			suffix = " (resumed)"
		}
		if rec.FailureReason != "" {
			suffix = " - " + rec.FailureReason
		}
		fmt.Printf("  %-20s %s%s\n", rec.Name, rec.Status, suffix)
	}
	if len(rep.ClusterState) > 0 {
		fmt.Printf("Cluster members: %v\n", rep.ClusterState)
	}
	if rep.FailureReason != "" {
		fmt.Printf("Failure: %s\n", rep.FailureReason)
	}
}

// serveMetrics exposes the Prometheus registry for the duration of the
// run. Scrape errors are not fatal to the bootstrap.
func serveMetrics(addr string, obs observe.Observer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		obs.Printf("metrics server stopped: %v", err)
	}
}
