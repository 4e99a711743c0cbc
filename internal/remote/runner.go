// Package remote executes single commands on single hosts over SSH.
//
// The executor interprets nothing: a non-zero exit comes back as a
// populated Result with the failure flag set, not as a Go error. Only
// transport-level problems (unreachable host, timeout) surface as
// errors, because only those change what the caller is allowed to
// assume about remote state.
package remote

import (
	"context"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
)

// Runner executes commands and transfers files on remote hosts.
type Runner interface {
	// Run executes command on host and returns its Result.
	//
	// A non-zero remote exit status is not an error: the Result carries
	// the failure and the caller decides what it means. An error is
	// returned only for connectivity failures (*ConnectivityError) and
	// deadline expiry (*TimeoutError); in the timeout case the Result
	// state is StateUnknown.
	Run(ctx context.Context, host inventory.Host, command string, timeout time.Duration) (Result, error)

	// Upload copies a local file to remotePath on host.
	Upload(ctx context.Context, host inventory.Host, localPath, remotePath string) error
}
