package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values. These can be
// customized via environment variables.
type Timeouts struct {
	Command           time.Duration // Default per-command timeout
	Init              time.Duration // Control-plane init command timeout
	Join              time.Duration // Per-worker join command timeout
	Gate              time.Duration // Readiness gate timeout
	ProbeInterval     time.Duration // Readiness gate poll interval
	ProbeCommand      time.Duration // Timeout for a single probe command
	DialTimeout       time.Duration // SSH dial timeout
	RetryMaxAttempts  int           // Connectivity retry attempts
	RetryInitialDelay time.Duration // Initial delay between connectivity retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If a variable is not set or invalid, the default value is used.
//
// Environment Variables:
//   - KUBESTRAP_TIMEOUT_COMMAND (default: 5m)
//   - KUBESTRAP_TIMEOUT_INIT (default: 10m)
//   - KUBESTRAP_TIMEOUT_JOIN (default: 10m)
//   - KUBESTRAP_TIMEOUT_GATE (default: 10m)
//   - KUBESTRAP_PROBE_INTERVAL (default: 10s)
//   - KUBESTRAP_TIMEOUT_PROBE_COMMAND (default: 30s)
//   - KUBESTRAP_TIMEOUT_DIAL (default: 10s)
//   - KUBESTRAP_RETRY_MAX_ATTEMPTS (default: 3)
//   - KUBESTRAP_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Command:           parseDuration("KUBESTRAP_TIMEOUT_COMMAND", 5*time.Minute),
		Init:              parseDuration("KUBESTRAP_TIMEOUT_INIT", 10*time.Minute),
		Join:              parseDuration("KUBESTRAP_TIMEOUT_JOIN", 10*time.Minute),
		Gate:              parseDuration("KUBESTRAP_TIMEOUT_GATE", 10*time.Minute),
		ProbeInterval:     parseDuration("KUBESTRAP_PROBE_INTERVAL", 10*time.Second),
		ProbeCommand:      parseDuration("KUBESTRAP_TIMEOUT_PROBE_COMMAND", 30*time.Second),
		DialTimeout:       parseDuration("KUBESTRAP_TIMEOUT_DIAL", 10*time.Second),
		RetryMaxAttempts:  parseInt("KUBESTRAP_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("KUBESTRAP_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// TestTimeouts returns short timeouts suitable for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		Command:           time.Second,
		Init:              time.Second,
		Join:              time.Second,
		Gate:              100 * time.Millisecond,
		ProbeInterval:     time.Millisecond,
		ProbeCommand:      100 * time.Millisecond,
		DialTimeout:       100 * time.Millisecond,
		RetryMaxAttempts:  2,
		RetryInitialDelay: time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// parseInt parses an integer from an environment variable.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
