package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeplatform/kubestrap/cmd/kubestrap/handlers"
)

// Init returns the command for interactively creating an inventory
// configuration.
//
// Flags:
//
//	--output, -o: Path to the output file (default "kubestrap.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create an inventory configuration",
		Long: `Interactively create an inventory configuration file.

The wizard asks for:

  - Cluster name
  - SSH user and private key
  - Control-plane and worker addresses
  - CNI plugin
  - Worker-join failure policy

The generated file carries working kubeadm defaults for everything
else; edit it to adjust commands, timeouts, or the pod network CIDR.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "kubestrap.yaml", "Output file path")

	return cmd
}
