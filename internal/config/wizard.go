package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// CNI manifest choices offered by the wizard.
const (
	cniFlannel = "https://github.com/flannel-io/flannel/releases/latest/download/kube-flannel.yml"
	cniCalico  = "https://raw.githubusercontent.com/projectcalico/calico/v3.28.0/manifests/calico.yaml"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	ClusterName    string
	SSHUser        string
	SSHKeyPath     string
	ControlPlane   string
	Workers        string
	CNIManifest    string
	JoinBestEffort bool
}

// RunWizard walks the user through a minimal working configuration.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		SSHUser:        "root",
		SSHKeyPath:     defaultKeyPath(),
		CNIManifest:    cniFlannel,
		JoinBestEffort: true,
	}

	form := huh.NewForm(
		// Cluster identity
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster name").
				Description("Lowercase alphanumeric and hyphens, up to 32 characters").
				Placeholder("my-cluster").
				Value(&result.ClusterName).
				Validate(validateWizardClusterName),
		),

		// SSH access
		huh.NewGroup(
			huh.NewInput().
				Title("SSH user").
				Description("User with root privileges on every host").
				Value(&result.SSHUser).
				Validate(nonEmpty("SSH user")),

			huh.NewInput().
				Title("SSH private key path").
				Value(&result.SSHKeyPath).
				Validate(nonEmpty("key path")),
		),

		// Host topology
		huh.NewGroup(
			huh.NewInput().
				Title("Control-plane address").
				Description("IP address or hostname of the control-plane host").
				Placeholder("10.0.0.10").
				Value(&result.ControlPlane).
				Validate(nonEmpty("control-plane address")),

			huh.NewInput().
				Title("Worker addresses").
				Description("Comma-separated list, e.g. 10.0.0.11, 10.0.0.12").
				Value(&result.Workers),
		),

		// Networking and join policy
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("CNI plugin").
				Description("Network-plugin manifest applied after the control plane is up").
				Options(
					huh.NewOption("Flannel (simple overlay)", cniFlannel),
					huh.NewOption("Calico (network policy support)", cniCalico),
				).
				Value(&result.CNIManifest),

			huh.NewConfirm().
				Title("Tolerate partial worker-join failure?").
				Description("Yes: the run succeeds if at least one worker joins. No: any join failure fails the run.").
				Value(&result.JoinBestEffort),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}
	return result, nil
}

// ToConfig converts the wizard result to a Config with defaults applied.
func (r *WizardResult) ToConfig() *Config {
	cfg := &Config{
		ClusterName: r.ClusterName,
		SSH: SSHConfig{
			User:    r.SSHUser,
			KeyPath: r.SSHKeyPath,
		},
		Hosts: []HostConfig{
			{Name: "cp-1", Address: strings.TrimSpace(r.ControlPlane), Role: "control-plane"},
		},
	}
	for i, addr := range splitAddresses(r.Workers) {
		cfg.Hosts = append(cfg.Hosts, HostConfig{
			Name:    fmt.Sprintf("worker-%d", i+1),
			Address: addr,
			Role:    "worker",
		})
	}
	cfg.Phases.CNI.Manifest = r.CNIManifest
	bestEffort := r.JoinBestEffort
	cfg.Phases.JoinBestEffort = &bestEffort
	cfg.applyDefaults()
	return cfg
}

// WriteYAML writes the configuration to path.
func WriteYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/root/.ssh/id_ed25519"
	}
	return home + "/.ssh/id_ed25519"
}

func validateWizardClusterName(s string) error {
	if !clusterNameRegex.MatchString(s) {
		return fmt.Errorf("must be 1-32 lowercase alphanumeric characters or hyphens")
	}
	return nil
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
