// Package main is the entry point for the kubestrap CLI.
//
// kubestrap bootstraps a Kubernetes cluster across a static set of
// SSH-reachable hosts: it prepares every host, initializes the control
// plane, joins the workers with a freshly minted credential, installs
// the CNI, and verifies the result. Runs are resumable: a persisted
// report lets a re-run skip phases that already succeeded.
//
// Commands: bootstrap, report, init, version, completion.
//
// For detailed usage information, run:
//
//	kubestrap --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kubeplatform/kubestrap/cmd/kubestrap/commands"
	"github.com/kubeplatform/kubestrap/internal/config"
	"github.com/kubeplatform/kubestrap/internal/inventory"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to exit status 2 so callers can
// tell a bad inventory from a failed bootstrap (status 1).
func exitCode(err error) int {
	var validationErr *config.ValidationError
	var configurationErr *inventory.ConfigurationError
	if errors.As(err, &validationErr) || errors.As(err, &configurationErr) {
		return 2
	}
	return 1
}
