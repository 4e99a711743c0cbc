// Package config loads and validates the bootstrap configuration.
//
// Configuration is read once at process start and is immutable for the
// run. It covers the host inventory, the join-credential settings, and
// the per-phase commands and probes; commands and probes are data, not
// code, so operators can adjust them without rebuilding.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
)

// clusterNameRegex validates cluster name format: 1-32 lowercase
// alphanumeric with hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// Config is the full bootstrap configuration.
type Config struct {
	ClusterName string        `yaml:"clusterName" mapstructure:"clusterName"`
	SSH         SSHConfig     `yaml:"ssh" mapstructure:"ssh"`
	Hosts       []HostConfig  `yaml:"hosts" mapstructure:"hosts"`
	Network     NetworkConfig `yaml:"network" mapstructure:"network"`
	Token       TokenConfig   `yaml:"token" mapstructure:"token"`
	Phases      PhasesConfig  `yaml:"phases" mapstructure:"phases"`
}

// SSHConfig holds the default connection credentials, overridable per
// host.
type SSHConfig struct {
	User    string `yaml:"user" mapstructure:"user"`
	KeyPath string `yaml:"keyPath" mapstructure:"keyPath"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

// HostConfig describes one host in the inventory file.
type HostConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Address string `yaml:"address" mapstructure:"address"`
	Role    string `yaml:"role" mapstructure:"role"`
	User    string `yaml:"user" mapstructure:"user"`
	KeyPath string `yaml:"keyPath" mapstructure:"keyPath"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

// NetworkConfig holds cluster networking parameters used in commands
// and probes.
type NetworkConfig struct {
	PodCIDR string `yaml:"podCIDR" mapstructure:"podCIDR"`
	APIPort int    `yaml:"apiPort" mapstructure:"apiPort"`
}

// TokenConfig controls the join credential.
type TokenConfig struct {
	// TTL is the credential time-to-live; it must exceed the expected
	// duration of the whole worker-join phase.
	TTL string `yaml:"ttl" mapstructure:"ttl"`
	// MintCommand runs on the control-plane host and prints the join
	// fragment on stdout.
	MintCommand string `yaml:"mintCommand" mapstructure:"mintCommand"`
}

// TTLDuration returns the parsed credential TTL.
func (t TokenConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(t.TTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// CNIConfig selects the network-plugin manifest.
type CNIConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"`
}

// PhasesConfig holds the per-phase commands and switches.
type PhasesConfig struct {
	PrepareCommands []string  `yaml:"prepareCommands" mapstructure:"prepareCommands"`
	InitCommand     string    `yaml:"initCommand" mapstructure:"initCommand"`
	JoinBestEffort  *bool     `yaml:"joinBestEffort" mapstructure:"joinBestEffort"`
	CNI             CNIConfig `yaml:"cni" mapstructure:"cni"`
	VerifyCommands  []string  `yaml:"verifyCommands" mapstructure:"verifyCommands"`
	// Workloads are manifest paths or URLs applied after the cluster is
	// verified. Content is opaque to the orchestrator.
	Workloads []string `yaml:"workloads" mapstructure:"workloads"`
}

// Kubectl is the kubectl invocation used on the control-plane host.
const Kubectl = "kubectl --kubeconfig /etc/kubernetes/admin.conf"

// applyDefaults fills unset fields with working kubeadm-based defaults.
func (c *Config) applyDefaults() {
	if c.SSH.User == "" {
		c.SSH.User = "root"
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.Network.PodCIDR == "" {
		c.Network.PodCIDR = "10.244.0.0/16"
	}
	if c.Network.APIPort == 0 {
		c.Network.APIPort = 6443
	}
	if c.Token.TTL == "" {
		c.Token.TTL = "1h"
	}
	if c.Token.MintCommand == "" {
		c.Token.MintCommand = fmt.Sprintf(
			"kubeadm token create --ttl %s --print-join-command", c.Token.TTL)
	}
	if len(c.Phases.PrepareCommands) == 0 {
		c.Phases.PrepareCommands = []string{
			"modprobe br_netfilter && modprobe overlay",
			"sysctl -w net.bridge.bridge-nf-call-iptables=1 net.ipv4.ip_forward=1",
			"swapoff -a",
			"systemctl enable --now containerd kubelet",
		}
	}
	if c.Phases.InitCommand == "" {
		c.Phases.InitCommand = fmt.Sprintf(
			"kubeadm init --pod-network-cidr=%s --upload-certs", c.Network.PodCIDR)
	}
	if c.Phases.JoinBestEffort == nil {
		bestEffort := true
		c.Phases.JoinBestEffort = &bestEffort
	}
	if c.Phases.CNI.Manifest == "" {
		c.Phases.CNI.Manifest = "https://github.com/flannel-io/flannel/releases/latest/download/kube-flannel.yml"
	}
	if len(c.Phases.VerifyCommands) == 0 {
		c.Phases.VerifyCommands = []string{
			Kubectl + " get --raw=/readyz",
			Kubectl + " get nodes --no-headers",
		}
	}
}

// ValidationError indicates the configuration file is unusable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Validate checks field-level constraints. Topology constraints (one
// control plane, unique addresses) are enforced by inventory.New.
func (c *Config) Validate() error {
	if !clusterNameRegex.MatchString(c.ClusterName) {
		return &ValidationError{Reason: fmt.Sprintf("cluster name %q must be 1-32 lowercase alphanumeric characters or hyphens", c.ClusterName)}
	}
	if len(c.Hosts) == 0 {
		return &ValidationError{Reason: "no hosts defined"}
	}
	if _, err := time.ParseDuration(c.Token.TTL); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("token ttl %q is not a duration: %v", c.Token.TTL, err)}
	}
	if c.Network.APIPort < 1 || c.Network.APIPort > 65535 {
		return &ValidationError{Reason: fmt.Sprintf("apiPort %d out of range", c.Network.APIPort)}
	}
	for _, h := range c.Hosts {
		if h.KeyPath == "" && c.SSH.KeyPath == "" {
			return &ValidationError{Reason: fmt.Sprintf("host %s has no SSH key path and no default is set", h.Name)}
		}
	}
	return nil
}

// Inventory builds the validated host inventory, applying the SSH
// defaults to hosts that do not override them.
func (c *Config) Inventory() (*inventory.Inventory, error) {
	hosts := make([]inventory.Host, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		host := inventory.Host{
			Name:    h.Name,
			Address: h.Address,
			Role:    inventory.Role(h.Role),
			User:    h.User,
			KeyPath: h.KeyPath,
			Port:    h.Port,
		}
		if host.User == "" {
			host.User = c.SSH.User
		}
		if host.KeyPath == "" {
			host.KeyPath = c.SSH.KeyPath
		}
		if host.Port == 0 {
			host.Port = c.SSH.Port
		}
		hosts = append(hosts, host)
	}
	return inventory.New(hosts)
}

// JoinIsBestEffort reports whether worker-join tolerates partial host
// failure.
func (c *Config) JoinIsBestEffort() bool {
	return c.Phases.JoinBestEffort == nil || *c.Phases.JoinBestEffort
}
