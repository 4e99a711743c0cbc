package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeplatform/kubestrap/cmd/kubestrap/handlers"
)

// Bootstrap returns the command that runs the full bootstrap sequence.
//
// The sequence runs five ordered phases (plus an optional workload
// phase) against the configured inventory:
//
//  1. host-prepare: kernel modules, sysctls, container runtime
//  2. control-plane-init: kubeadm init, gated on the API server
//  3. worker-join: mint a join credential, join every worker
//  4. cni-install: apply the network-plugin manifest
//  5. cluster-verify: read-only health checks
//
// The run is recorded in a JSON report under the state directory.
// Re-running against the same cluster resumes: phases the prior report
// marks succeeded are skipped unless --force is given.
//
// Flags:
//
//	--inventory, -i: Path to the inventory YAML (default "kubestrap.yaml")
//	--state-dir: Directory for persisted run reports (default ".kubestrap")
//	--from-phase: Start at the named phase, skipping earlier ones
//	--only-phase: Run only the named phase
//	--force: Re-run phases a prior report marks succeeded
//	--dry-run: Print the plan without touching any host
//	--metrics-listen: Serve Prometheus metrics on this address during the run
func Bootstrap() *cobra.Command {
	var opts handlers.BootstrapOptions

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap the cluster across the inventory hosts",
		Long: `Bootstrap a Kubernetes cluster across the hosts in the inventory.

Each phase must fully succeed before the next one starts. The first
failed phase halts the run and leaves later phases pending; the
persisted report lets the next invocation resume where this one
stopped.

Examples:
  # Bootstrap using kubestrap.yaml in the current directory
  kubestrap bootstrap

  # Resume a failed run (succeeded phases are skipped automatically)
  kubestrap bootstrap

  # Re-run everything from scratch
  kubestrap bootstrap --force

  # See the plan without executing anything
  kubestrap bootstrap --dry-run

  # Re-run just the verification phase
  kubestrap bootstrap --only-phase cluster-verify`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InventoryPath, "inventory", "i", "kubestrap.yaml", "Path to the inventory configuration file")
	cmd.Flags().StringVar(&opts.StateDir, "state-dir", ".kubestrap", "Directory for persisted run reports")
	cmd.Flags().StringVar(&opts.FromPhase, "from-phase", "", "Start at the named phase")
	cmd.Flags().StringVar(&opts.OnlyPhase, "only-phase", "", "Run only the named phase")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Re-run phases a prior report marks succeeded")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without making changes")
	cmd.Flags().StringVar(&opts.MetricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on (e.g. :9090)")

	return cmd
}
