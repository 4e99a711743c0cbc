// Package phases assembles the concrete bootstrap phase plan from the
// configuration: host preparation, control-plane init, worker join,
// CNI install, cluster verification, and optional workload deployment.
package phases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kubeplatform/kubestrap/internal/config"
	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/manifest"
	"github.com/kubeplatform/kubestrap/internal/observe"
	"github.com/kubeplatform/kubestrap/internal/readiness"
	"github.com/kubeplatform/kubestrap/internal/remote"
	"github.com/kubeplatform/kubestrap/internal/sequencer"
	"github.com/kubeplatform/kubestrap/internal/token"
)

// Phase names, in execution order.
const (
	HostPrepare      = "host-prepare"
	ControlPlaneInit = "control-plane-init"
	WorkerJoin       = "worker-join"
	CNIInstall       = "cni-install"
	ClusterVerify    = "cluster-verify"
	WorkloadDeploy   = "workload-deploy"
)

// Names returns the phase names the configuration produces, in order.
func Names(cfg *config.Config) []string {
	names := []string{HostPrepare, ControlPlaneInit, WorkerJoin, CNIInstall, ClusterVerify}
	if len(cfg.Phases.Workloads) > 0 {
		names = append(names, WorkloadDeploy)
	}
	return names
}

// Plan builds the ordered phase list for one bootstrap run.
func Plan(
	cfg *config.Config,
	inv *inventory.Inventory,
	runner remote.Runner,
	broker *token.Broker,
	applier *manifest.Applier,
	obs observe.Observer,
	timeouts *config.Timeouts,
) []sequencer.Phase {
	cp := inv.ControlPlane()

	plan := []sequencer.Phase{
		hostPrepare(cfg, timeouts),
		controlPlaneInit(cfg, cp, timeouts),
		workerJoin(cfg, inv, runner, broker, obs, timeouts),
		cniInstall(cfg, cp, runner, applier, timeouts),
		clusterVerify(cfg, timeouts),
	}
	if len(cfg.Phases.Workloads) > 0 {
		plan = append(plan, workloadDeploy(cfg, cp, applier, timeouts))
	}
	return plan
}

// hostPrepare runs the OS-level preparation commands on every host.
func hostPrepare(cfg *config.Config, timeouts *config.Timeouts) sequencer.Phase {
	return sequencer.Phase{
		Name:           HostPrepare,
		Target:         sequencer.TargetAll,
		Commands:       static(cfg.Phases.PrepareCommands),
		CommandTimeout: timeouts.Command,
	}
}

// controlPlaneInit initializes the control plane and gates on the API
// server answering its health endpoint.
func controlPlaneInit(cfg *config.Config, cp inventory.Host, timeouts *config.Timeouts) sequencer.Phase {
	return sequencer.Phase{
		Name:           ControlPlaneInit,
		Target:         sequencer.TargetControlPlane,
		Commands:       static([]string{cfg.Phases.InitCommand}),
		CommandTimeout: timeouts.Init,
		Probe: &readiness.HTTPProbe{
			ProbeName: "api-server-health",
			URL:       fmt.Sprintf("https://%s:%d/healthz", cp.Address, cfg.Network.APIPort),
		},
		GateInterval: timeouts.ProbeInterval,
		GateTimeout:  timeouts.Gate,
		Registers:    true,
	}
}

// workerJoin mints the join credential once, then joins every worker
// with it. The credential expiry is re-checked per host at dispatch
// time, and the credential value is scrubbed from every recorded
// result.
func workerJoin(cfg *config.Config, inv *inventory.Inventory, runner remote.Runner, broker *token.Broker, obs observe.Observer, timeouts *config.Timeouts) sequencer.Phase {
	cp := inv.ControlPlane()

	// Registered nodes the gate must see. Best-effort settles for the
	// control plane plus at least one worker.
	expected := inv.Len()
	if cfg.JoinIsBestEffort() {
		expected = 2
	}

	return sequencer.Phase{
		Name:   WorkerJoin,
		Target: sequencer.TargetWorkers,
		Setup: func(ctx context.Context) error {
			cred, err := broker.Mint(ctx, cp)
			if err != nil {
				return err
			}
			obs.Event(observe.Event{
				Type:    observe.EventCredentialMinted,
				Phase:   WorkerJoin,
				Host:    cp.Name,
				Message: fmt.Sprintf("ttl %v", cred.TTL),
			})
			return nil
		},
		Commands: func(h inventory.Host) ([]string, error) {
			cred := broker.Credential()
			if cred == nil {
				return nil, errors.New("join credential not minted")
			}
			if now := time.Now(); cred.Expired(now) {
				return nil, &token.ExpiredError{
					Host:      h.Name,
					IssuedAt:  cred.IssuedAt,
					TTL:       cred.TTL,
					Attempted: now,
				}
			}
			return []string{cred.Fragment()}, nil
		},
		Redact: func(s string) string {
			cred := broker.Credential()
			if cred == nil || s == "" {
				return s
			}
			return strings.ReplaceAll(s, cred.Fragment(), "kubeadm join [redacted]")
		},
		CommandTimeout: timeouts.Join,
		Probe: &readiness.CountProbe{
			ProbeName: "nodes-registered",
			Runner:    runner,
			Host:      cp,
			Command:   config.Kubectl + " get nodes --no-headers | wc -l",
			Expected:  expected,
			Timeout:   timeouts.ProbeCommand,
		},
		GateInterval: timeouts.ProbeInterval,
		GateTimeout:  timeouts.Gate,
		BestEffort:   cfg.JoinIsBestEffort(),
		Registers:    true,
	}
}

// cniInstall applies the network-plugin manifest on the control plane
// and gates on at least the control-plane node turning Ready.
func cniInstall(cfg *config.Config, cp inventory.Host, runner remote.Runner, applier *manifest.Applier, timeouts *config.Timeouts) sequencer.Phase {
	var staged string

	return sequencer.Phase{
		Name:   CNIInstall,
		Target: sequencer.TargetControlPlane,
		Setup: func(ctx context.Context) error {
			ref, err := applier.Stage(ctx, cp, cfg.Phases.CNI.Manifest)
			if err != nil {
				return err
			}
			staged = ref
			return nil
		},
		Commands: func(inventory.Host) ([]string, error) {
			return []string{applier.ApplyCommand(staged)}, nil
		},
		CommandTimeout: timeouts.Command,
		Probe: &readiness.CountProbe{
			ProbeName: "nodes-ready",
			Runner:    runner,
			Host:      cp,
			Command:   config.Kubectl + " get nodes --no-headers | grep -c ' Ready'",
			Expected:  1,
			Timeout:   timeouts.ProbeCommand,
		},
		GateInterval: timeouts.ProbeInterval,
		GateTimeout:  timeouts.Gate,
	}
}

// clusterVerify runs the configured read-only verification commands.
func clusterVerify(cfg *config.Config, timeouts *config.Timeouts) sequencer.Phase {
	return sequencer.Phase{
		Name:           ClusterVerify,
		Target:         sequencer.TargetControlPlane,
		Commands:       static(cfg.Phases.VerifyCommands),
		CommandTimeout: timeouts.Command,
	}
}

// workloadDeploy applies the configured workload manifests after the
// cluster is verified.
func workloadDeploy(cfg *config.Config, cp inventory.Host, applier *manifest.Applier, timeouts *config.Timeouts) sequencer.Phase {
	staged := make([]string, 0, len(cfg.Phases.Workloads))

	return sequencer.Phase{
		Name:   WorkloadDeploy,
		Target: sequencer.TargetControlPlane,
		Setup: func(ctx context.Context) error {
			for _, ref := range cfg.Phases.Workloads {
				target, err := applier.Stage(ctx, cp, ref)
				if err != nil {
					return err
				}
				staged = append(staged, target)
			}
			return nil
		},
		Commands: func(inventory.Host) ([]string, error) {
			commands := make([]string, 0, len(staged))
			for _, ref := range staged {
				commands = append(commands, applier.ApplyCommand(ref))
			}
			return commands, nil
		},
		CommandTimeout: timeouts.Command,
		BestEffort:     true,
	}
}

func static(commands []string) func(inventory.Host) ([]string, error) {
	return func(inventory.Host) ([]string, error) {
		return commands, nil
	}
}
