// Package inventory holds the static host registry for a bootstrap run.
//
// Hosts are loaded once from configuration, validated, and treated as
// immutable for the remainder of the run. All orchestration decisions
// about "what runs where" start from this registry.
package inventory

import (
	"fmt"
	"sort"
)

// Role identifies what part a host plays in the cluster topology.
type Role string

const (
	// RoleControlPlane is the node coordinating cluster membership.
	RoleControlPlane Role = "control-plane"
	// RoleWorker is a node that joins an existing control plane.
	RoleWorker Role = "worker"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleControlPlane || r == RoleWorker
}

// Host describes one remote machine targeted by the bootstrap sequence.
type Host struct {
	Name    string
	Address string
	Role    Role
	User    string
	KeyPath string
	Port    int
}

// Endpoint returns the dialable address of the host's SSH port.
func (h Host) Endpoint() string {
	port := h.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", h.Address, port)
}

// ConfigurationError indicates the inventory is unusable. No remote
// calls are attempted once one is raised.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid inventory: " + e.Reason
}

// Inventory is the validated, ordered set of hosts for a run.
type Inventory struct {
	hosts []Host
}

// New validates the host list and builds an Inventory.
//
// The single-control-plane topology requires exactly one host with the
// control-plane role; host names and addresses must be unique.
func New(hosts []Host) (*Inventory, error) {
	if len(hosts) == 0 {
		return nil, &ConfigurationError{Reason: "no hosts defined"}
	}

	seenNames := make(map[string]bool, len(hosts))
	seenAddrs := make(map[string]bool, len(hosts))
	controlPlanes := 0

	for _, h := range hosts {
		if h.Name == "" {
			return nil, &ConfigurationError{Reason: "host with empty name"}
		}
		if h.Address == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("host %s has no address", h.Name)}
		}
		if !h.Role.Valid() {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("host %s has unknown role %q", h.Name, h.Role)}
		}
		if seenNames[h.Name] {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate host name %s", h.Name)}
		}
		if seenAddrs[h.Address] {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate host address %s", h.Address)}
		}
		seenNames[h.Name] = true
		seenAddrs[h.Address] = true
		if h.Role == RoleControlPlane {
			controlPlanes++
		}
	}

	if controlPlanes != 1 {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("expected exactly 1 control-plane host, found %d", controlPlanes),
		}
	}

	ordered := make([]Host, len(hosts))
	copy(ordered, hosts)
	sort.SliceStable(ordered, func(i, j int) bool {
		// Control plane first, then workers in declaration order.
		return ordered[i].Role == RoleControlPlane && ordered[j].Role != RoleControlPlane
	})

	return &Inventory{hosts: ordered}, nil
}

// All returns every host, control plane first.
func (inv *Inventory) All() []Host {
	out := make([]Host, len(inv.hosts))
	copy(out, inv.hosts)
	return out
}

// Hosts returns the hosts holding the given role, in inventory order.
func (inv *Inventory) Hosts(role Role) []Host {
	var out []Host
	for _, h := range inv.hosts {
		if h.Role == role {
			out = append(out, h)
		}
	}
	return out
}

// ControlPlane returns the single control-plane host.
func (inv *Inventory) ControlPlane() Host {
	for _, h := range inv.hosts {
		if h.Role == RoleControlPlane {
			return h
		}
	}
	// Unreachable after New's validation.
	return Host{}
}

// Workers returns all worker hosts in inventory order.
func (inv *Inventory) Workers() []Host {
	return inv.Hosts(RoleWorker)
}

// Len returns the total host count.
func (inv *Inventory) Len() int {
	return len(inv.hosts)
}
