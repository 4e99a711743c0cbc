package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardResult_ToConfig(t *testing.T) {
	t.Parallel()
	result := &WizardResult{
		ClusterName:    "demo",
		SSHUser:        "ubuntu",
		SSHKeyPath:     "/home/ubuntu/.ssh/id_ed25519",
		ControlPlane:   " 10.0.0.10 ",
		Workers:        "10.0.0.11, 10.0.0.12,",
		CNIManifest:    cniCalico,
		JoinBestEffort: false,
	}

	cfg := result.ToConfig()
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Hosts, 3)
	assert.Equal(t, HostConfig{Name: "cp-1", Address: "10.0.0.10", Role: "control-plane"}, cfg.Hosts[0])
	assert.Equal(t, "worker-1", cfg.Hosts[1].Name)
	assert.Equal(t, "10.0.0.12", cfg.Hosts[2].Address)
	assert.Equal(t, cniCalico, cfg.Phases.CNI.Manifest)
	assert.False(t, cfg.JoinIsBestEffort())

	// Defaults are filled in.
	assert.Equal(t, "10.244.0.0/16", cfg.Network.PodCIDR)
	assert.NotEmpty(t, cfg.Token.MintCommand)

	inv, err := cfg.Inventory()
	require.NoError(t, err)
	assert.Equal(t, "ubuntu", inv.ControlPlane().User)
}

func TestWizardResult_ToConfigWithoutWorkers(t *testing.T) {
	t.Parallel()
	result := &WizardResult{
		ClusterName:  "solo",
		SSHUser:      "root",
		SSHKeyPath:   "/k",
		ControlPlane: "10.0.0.10",
	}

	cfg := result.ToConfig()
	require.Len(t, cfg.Hosts, 1)
	_, err := cfg.Inventory()
	require.NoError(t, err)
}

func TestWriteYAML_Roundtrip(t *testing.T) {
	t.Parallel()
	result := &WizardResult{
		ClusterName:    "demo",
		SSHUser:        "root",
		SSHKeyPath:     "/k",
		ControlPlane:   "10.0.0.10",
		Workers:        "10.0.0.11",
		CNIManifest:    cniFlannel,
		JoinBestEffort: true,
	}
	path := filepath.Join(t.TempDir(), "kubestrap.yaml")
	require.NoError(t, WriteYAML(result.ToConfig(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ClusterName)
	require.Len(t, cfg.Hosts, 2)
}

func TestValidateWizardClusterName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateWizardClusterName("demo-1"))
	assert.Error(t, validateWizardClusterName(""))
	assert.Error(t, validateWizardClusterName("Has Spaces"))
}

func TestSplitAddresses(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, splitAddresses(" a , b ,"))
	assert.Nil(t, splitAddresses("  "))
}
