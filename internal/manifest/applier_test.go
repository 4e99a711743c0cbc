package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote/remotetest"
)

var controlPlane = inventory.Host{Name: "cp-1", Address: "10.0.0.10", Role: inventory.RoleControlPlane}

func TestApply_LocalFileIsUploadedFirst(t *testing.T) {
	t.Parallel()
	local := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(local, []byte("kind: Deployment\n"), 0o600))

	runner := &remotetest.FakeRunner{}
	applier := NewApplier(runner)

	res, err := applier.Apply(context.Background(), controlPlane, local, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	uploads := runner.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, local, uploads[0].LocalPath)
	assert.Equal(t, DefaultRemoteDir+"/app.yaml", uploads[0].RemotePath)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "kubectl apply -f "+DefaultRemoteDir+"/app.yaml", calls[0].Command)
}

func TestApply_URLIsAppliedInPlace(t *testing.T) {
	t.Parallel()
	runner := &remotetest.FakeRunner{}
	applier := NewApplier(runner)

	_, err := applier.Apply(context.Background(), controlPlane,
		"https://example.com/cni.yaml", time.Minute)
	require.NoError(t, err)

	assert.Empty(t, runner.Uploads())
	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "kubectl apply -f https://example.com/cni.yaml", calls[0].Command)
}

func TestApply_UploadFailure(t *testing.T) {
	t.Parallel()
	local := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(local, []byte("kind: Deployment\n"), 0o600))

	runner := &remotetest.FakeRunner{
		OnUpload: func(inventory.Host, string, string) error {
			return errors.New("sftp session refused")
		},
	}
	applier := NewApplier(runner)

	res, err := applier.Apply(context.Background(), controlPlane, local, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftp session refused")
	assert.False(t, res.Succeeded())
	// No apply command is attempted after a failed upload.
	assert.Empty(t, runner.Calls())
}

func TestIsURL(t *testing.T) {
	t.Parallel()
	assert.True(t, IsURL("https://example.com/a.yaml"))
	assert.True(t, IsURL("http://example.com/a.yaml"))
	assert.False(t, IsURL("/tmp/a.yaml"))
	assert.False(t, IsURL("a.yaml"))
}
