// Package manifest provides the generic "apply manifest" primitive.
//
// The orchestrator never inspects manifest content: a local manifest is
// uploaded to the control-plane host over SFTP and applied there, and a
// remote manifest URL is applied in place. Either way the outcome is
// just another command result.
package manifest

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote"
)

// DefaultRemoteDir is where uploaded manifests land on the host.
const DefaultRemoteDir = "/var/lib/kubestrap/manifests"

// Applier applies declarative manifests on a remote host.
type Applier struct {
	runner    remote.Runner
	remoteDir string
	kubectl   string
}

// NewApplier creates an Applier using the given runner.
func NewApplier(runner remote.Runner) *Applier {
	return &Applier{runner: runner, remoteDir: DefaultRemoteDir, kubectl: "kubectl"}
}

// WithKubectl overrides the kubectl invocation, e.g. to pass an
// explicit kubeconfig.
func (a *Applier) WithKubectl(kubectl string) *Applier {
	a.kubectl = kubectl
	return a
}

// IsURL reports whether ref names a remote manifest rather than a
// local file.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Stage makes ref applicable on host and returns the reference the
// apply command should use: URLs pass through untouched, local files
// are uploaded to the host's manifest directory.
func (a *Applier) Stage(ctx context.Context, host inventory.Host, ref string) (string, error) {
	if IsURL(ref) {
		return ref, nil
	}
	target := path.Join(a.remoteDir, filepath.Base(ref))
	if err := a.runner.Upload(ctx, host, ref, target); err != nil {
		return "", fmt.Errorf("failed to upload manifest %s: %w", ref, err)
	}
	return target, nil
}

// ApplyCommand returns the command that applies the staged reference.
func (a *Applier) ApplyCommand(stagedRef string) string {
	return a.kubectl + " apply -f " + stagedRef
}

// Apply stages and applies the manifest referenced by ref on host.
func (a *Applier) Apply(ctx context.Context, host inventory.Host, ref string, timeout time.Duration) (remote.Result, error) {
	target, err := a.Stage(ctx, host, ref)
	if err != nil {
		return remote.Result{
			Host:    host.Name,
			Command: "upload " + ref,
			State:   remote.StateUnknown,
			Detail:  err.Error(),
		}, err
	}
	return a.runner.Run(ctx, host, a.ApplyCommand(target), timeout)
}
