package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	r := New("demo", "demo", []string{"host-prepare", "control-plane-init", "worker-join"},
		[]string{"all", "control-plane", "workers"})
	r.Phases[0].Status = StatusSucceeded
	r.Phases[1].Status = StatusFailed
	r.Phases[1].FailureReason = "kubeadm init exited 1 on cp-1"
	r.Phases[1].Results = append(r.Phases[1].Results, HostResult{
		Host:        "cp-1",
		Command:     "kubeadm init",
		ExitCode:    1,
		State:       "failed",
		CompletedAt: time.Now(),
	})
	r.Overall = OverallFailed
	r.FailureReason = r.Phases[1].FailureReason
	return r
}

func TestReport_Lookups(t *testing.T) {
	t.Parallel()
	r := sampleReport()

	require.NotNil(t, r.Phase("worker-join"))
	assert.Nil(t, r.Phase("no-such-phase"))

	assert.True(t, r.PhaseSucceeded("host-prepare"))
	assert.False(t, r.PhaseSucceeded("control-plane-init"))
	assert.False(t, r.PhaseSucceeded("worker-join"))

	first := r.FirstFailure()
	require.NotNil(t, first)
	assert.Equal(t, "control-plane-init", first.Name)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	saved := sampleReport()

	require.NoError(t, store.Save(saved))

	loaded, err := store.Load("demo")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.RunID, loaded.RunID)
	assert.Equal(t, OverallFailed, loaded.Overall)
	require.Len(t, loaded.Phases, 3)
	assert.Equal(t, StatusSucceeded, loaded.Phases[0].Status)
	assert.Equal(t, "kubeadm init exited 1 on cp-1", loaded.Phases[1].FailureReason)
	assert.Equal(t, StatusPending, loaded.Phases[2].Status)
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	r, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestStore_SaveRequiresRunID(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	err := store.Save(&Report{})
	assert.Error(t, err)
}

func TestStore_ReportFilePermissions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state"))
	require.NoError(t, store.Save(sampleReport()))

	info, err := os.Stat(filepath.Join(dir, "state", "demo.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(sampleReport()))
	require.NoError(t, store.Delete("demo"))

	r, err := store.Load("demo")
	require.NoError(t, err)
	assert.Nil(t, r)

	// Deleting twice is fine.
	assert.NoError(t, store.Delete("demo"))
}
