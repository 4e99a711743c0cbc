package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeplatform/kubestrap/cmd/kubestrap/handlers"
)

// Report returns the command that prints the persisted run report.
//
// Flags:
//
//	--inventory, -i: Path to the inventory YAML (default "kubestrap.yaml")
//	--state-dir: Directory holding persisted run reports (default ".kubestrap")
//	--json: Print the raw report JSON instead of the summary
func Report() *cobra.Command {
	var opts handlers.ReportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the outcome of the last bootstrap run",
		Long: `Show the persisted report of the last bootstrap run for this cluster.

The report records per-phase status, per-host command results, the
readiness-gate outcomes, and the derived cluster state. The join
credential is never part of it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ShowReport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InventoryPath, "inventory", "i", "kubestrap.yaml", "Path to the inventory configuration file")
	cmd.Flags().StringVar(&opts.StateDir, "state-dir", ".kubestrap", "Directory holding persisted run reports")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the raw report JSON")

	return cmd
}
