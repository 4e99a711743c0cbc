package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/kubeplatform/kubestrap/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	runWizard   = config.RunWizard
	writeConfig = config.WriteYAML
)

// Init runs the inventory wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := cfg.Inventory(); err != nil {
		return err
	}

	if err := writeConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Println()
	fmt.Println("kubestrap - Kubernetes bootstrap over SSH")
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Println("This wizard creates an inventory file with working kubeadm defaults.")
	fmt.Println()
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	workers := 0
	for _, h := range cfg.Hosts {
		if h.Role == "worker" {
			workers++
		}
	}

	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()
	fmt.Println("Cluster Summary")
	fmt.Println("---------------")
	fmt.Printf("  Name:          %s\n", cfg.ClusterName)
	fmt.Printf("  Control plane: %s\n", cfg.Hosts[0].Address)
	fmt.Printf("  Workers:       %d\n", workers)
	fmt.Printf("  Pod CIDR:      %s\n", cfg.Network.PodCIDR)
	fmt.Printf("  CNI manifest:  %s\n", cfg.Phases.CNI.Manifest)
	fmt.Println()
	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s if needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Bootstrap your cluster:")
	fmt.Println("     kubestrap bootstrap")
	fmt.Println()
}
