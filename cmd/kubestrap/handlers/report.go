package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kubeplatform/kubestrap/internal/config"
	"github.com/kubeplatform/kubestrap/internal/remote"
	"github.com/kubeplatform/kubestrap/internal/report"
)

// ReportOptions holds the report command flags.
type ReportOptions struct {
	InventoryPath string
	StateDir      string
	JSON          bool
}

// ShowReport prints the persisted report of the last run for the
// configured cluster.
func ShowReport(_ context.Context, opts ReportOptions) error {
	cfg, err := config.LoadFile(opts.InventoryPath)
	if err != nil {
		return err
	}

	rep, err := report.NewStore(opts.StateDir).Load(cfg.ClusterName)
	if err != nil {
		return err
	}
	if rep == nil {
		return fmt.Errorf("no report found for cluster %s in %s", cfg.ClusterName, opts.StateDir)
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printReport(rep)
	return nil
}

func printReport(rep *report.Report) {
	fmt.Printf("Cluster:  %s\n", rep.ClusterName)
	fmt.Printf("Run:      %s\n", rep.RunID)
	fmt.Printf("Started:  %s\n", rep.StartedAt.Format(time.RFC3339))
	if !rep.CompletedAt.IsZero() {
		fmt.Printf("Finished: %s (%s)\n", rep.CompletedAt.Format(time.RFC3339),
			rep.CompletedAt.Sub(rep.StartedAt).Round(time.Second))
	}
	fmt.Printf("Outcome:  %s\n", rep.Overall)
	if rep.FailureReason != "" {
		fmt.Printf("Failure:  %s\n", rep.FailureReason)
	}

	fmt.Println("\nPhases:")
	for _, rec := range rep.Phases {
		marker := " "
		switch rec.Status {
		case report.StatusSucceeded:
			marker = "+"
		case report.StatusFailed:
			marker = "x"
		}
		resumed := ""
		if rec.Resumed {
			resumed = " (resumed)"
		}
		fmt.Printf("  [%s] %-20s %s%s\n", marker, rec.Name, rec.Status, resumed)

		for _, res := range rec.Results {
			if res.State == string(remote.StateSucceeded) {
				continue
			}
			detail := res.Detail
			if detail == "" {
				detail = fmt.Sprintf("exit status %d", res.ExitCode)
			}
			fmt.Printf("      %s: %s (%s)\n", res.Host, res.State, detail)
		}
		if rec.Gate != nil && !rec.Gate.Ready {
			fmt.Printf("      gate %s: not ready after %d attempts: %s\n",
				rec.Gate.Probe, rec.Gate.Attempts, rec.Gate.LastDetail)
		}
	}

	if len(rep.ClusterState) > 0 {
		fmt.Println("\nCluster members:")
		for _, host := range rep.ClusterState {
			fmt.Printf("  - %s\n", host)
		}
	}
}
