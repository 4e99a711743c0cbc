package readiness

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote"
)

// HTTPProbe reports ready when a GET against URL returns a 2xx status.
// Self-signed endpoints (a fresh API server) are accepted.
type HTTPProbe struct {
	ProbeName string
	URL       string
	Timeout   time.Duration

	client *http.Client
}

// Name implements Probe.
func (p *HTTPProbe) Name() string {
	if p.ProbeName != "" {
		return p.ProbeName
	}
	return "http " + p.URL
}

// Check implements Probe.
func (p *HTTPProbe) Check(ctx context.Context) (bool, string) {
	if p.client == nil {
		timeout := p.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		p.client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- endpoint serves a self-signed cert during bootstrap
			},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return false, fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// TCPProbe reports ready when the address accepts a TCP connection.
type TCPProbe struct {
	ProbeName   string
	Address     string
	DialTimeout time.Duration
}

// Name implements Probe.
func (p *TCPProbe) Name() string {
	if p.ProbeName != "" {
		return p.ProbeName
	}
	return "tcp " + p.Address
}

// Check implements Probe.
func (p *TCPProbe) Check(_ context.Context) (bool, string) {
	timeout := p.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("tcp", p.Address, timeout)
	if err != nil {
		return false, err.Error()
	}
	_ = conn.Close()
	return true, "port open"
}

// CommandProbe reports ready when a remote command exits 0. The probed
// command must itself be side-effect free.
type CommandProbe struct {
	ProbeName string
	Runner    remote.Runner
	Host      inventory.Host
	Command   string
	Timeout   time.Duration
}

// Name implements Probe.
func (p *CommandProbe) Name() string {
	if p.ProbeName != "" {
		return p.ProbeName
	}
	return fmt.Sprintf("command on %s", p.Host.Name)
}

// Check implements Probe.
func (p *CommandProbe) Check(ctx context.Context) (bool, string) {
	res, err := p.Runner.Run(ctx, p.Host, p.Command, p.Timeout)
	if err != nil {
		return false, err.Error()
	}
	if res.Succeeded() {
		return true, strings.TrimSpace(res.Stdout)
	}
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = res.Detail
	}
	return false, detail
}

// CountProbe reports ready when a remote command prints an integer of
// at least Expected. Used to gate on "N nodes registered and ready".
type CountProbe struct {
	ProbeName string
	Runner    remote.Runner
	Host      inventory.Host
	Command   string
	Expected  int
	Timeout   time.Duration
}

// Name implements Probe.
func (p *CountProbe) Name() string {
	if p.ProbeName != "" {
		return p.ProbeName
	}
	return fmt.Sprintf("count on %s", p.Host.Name)
}

// Check implements Probe.
func (p *CountProbe) Check(ctx context.Context) (bool, string) {
	res, err := p.Runner.Run(ctx, p.Host, p.Command, p.Timeout)
	if err != nil {
		return false, err.Error()
	}
	if !res.Succeeded() {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = res.Detail
		}
		return false, detail
	}

	count, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return false, fmt.Sprintf("unparseable count output %q", strings.TrimSpace(res.Stdout))
	}
	return count >= p.Expected, fmt.Sprintf("%d/%d", count, p.Expected)
}
