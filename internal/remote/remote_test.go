package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/kubeplatform/kubestrap/internal/inventory"
)

func TestResult_Predicates(t *testing.T) {
	t.Parallel()
	assert.True(t, Result{State: StateSucceeded}.Succeeded())
	assert.True(t, Result{State: StateFailed}.Failed())

	// Unknown is neither a success nor a failure.
	unknown := Result{State: StateUnknown}
	assert.False(t, unknown.Succeeded())
	assert.False(t, unknown.Failed())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("x", maxCapturedOutput+100)
	got := truncate(long)
	assert.True(t, strings.HasPrefix(got, "...(truncated)..."))
	assert.LessOrEqual(t, len(got), maxCapturedOutput+len("...(truncated)..."))
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	connErr := &ConnectivityError{Host: "cp-1", Err: errors.New("connection refused")}
	assert.True(t, IsConnectivity(connErr))
	assert.True(t, IsConnectivity(fmt.Errorf("wrapped: %w", connErr)))
	assert.False(t, IsTimeout(connErr))

	timeoutErr := &TimeoutError{Host: "cp-1", Command: "kubeadm init", Elapsed: 3 * time.Second}
	assert.True(t, IsTimeout(timeoutErr))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", timeoutErr)))
	assert.False(t, IsConnectivity(timeoutErr))

	assert.Contains(t, connErr.Error(), "cp-1")
	assert.Contains(t, timeoutErr.Error(), "did not complete")
}

// writeTestKey writes a throwaway ed25519 private key to a temp file.
func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "id_test")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))
	return keyPath
}

func TestSSHRunner_UnreachableHost(t *testing.T) {
	t.Parallel()
	runner := NewSSHRunner(200 * time.Millisecond)

	host := inventory.Host{
		Name:    "cp-1",
		Address: "127.0.0.1",
		Port:    1, // nothing listens here
		Role:    inventory.RoleControlPlane,
		User:    "root",
		KeyPath: writeTestKey(t),
	}

	res, err := runner.Run(context.Background(), host, "true", time.Second)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
	assert.Equal(t, StateUnknown, res.State)
	assert.Equal(t, "cp-1", res.Host)
}

func TestSSHRunner_MissingKey(t *testing.T) {
	t.Parallel()
	runner := NewSSHRunner(time.Second)

	host := inventory.Host{
		Name:    "cp-1",
		Address: "127.0.0.1",
		Role:    inventory.RoleControlPlane,
		User:    "root",
		KeyPath: filepath.Join(t.TempDir(), "no-such-key"),
	}

	_, err := runner.Run(context.Background(), host, "true", time.Second)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
}
