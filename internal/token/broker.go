// Package token mints and guards the short-lived join credential.
//
// The credential is created exactly once per run on the control-plane
// host, handed verbatim to each worker's join command, and discarded at
// process exit. It is a secret: it is never logged and never persisted.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote"
)

// ErrAlreadyMinted is returned when a second mint is attempted within
// the same run.
var ErrAlreadyMinted = errors.New("join credential already minted for this run")

// MintError indicates the minting command failed on the control-plane
// host. It is fatal for the run: no worker join is attempted without a
// valid credential.
type MintError struct {
	Host   string
	Detail string
	Err    error
}

func (e *MintError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("failed to mint join credential on %s: %s", e.Host, e.Detail)
	}
	return fmt.Sprintf("failed to mint join credential on %s: %v", e.Host, e.Err)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// ExpiredError indicates a join was attempted after the credential's
// TTL elapsed. It is reported per host; already-joined workers keep
// their success.
type ExpiredError struct {
	Host      string
	IssuedAt  time.Time
	TTL       time.Duration
	Attempted time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("join credential expired before host %s joined (issued %s, ttl %v)",
		e.Host, e.IssuedAt.Format(time.RFC3339), e.TTL)
}

// Credential is the join secret with its issue time and TTL.
type Credential struct {
	value    string
	IssuedAt time.Time
	TTL      time.Duration
}

// Fragment returns the opaque command fragment used verbatim inside a
// worker's join command.
func (c *Credential) Fragment() string {
	return c.value
}

// Expired reports whether the credential's TTL has elapsed at now.
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.IssuedAt.Add(c.TTL))
}

// String redacts the credential value. Keeps the secret out of logs
// that format the credential with %v or %s.
func (c *Credential) String() string {
	return fmt.Sprintf("Credential(redacted, issued=%s, ttl=%v)", c.IssuedAt.Format(time.RFC3339), c.TTL)
}

// GoString redacts the credential value from %#v formatting too.
func (c *Credential) GoString() string {
	return c.String()
}

// Broker mints the join credential on the control-plane host.
type Broker struct {
	runner      remote.Runner
	mintCommand string
	ttl         time.Duration
	timeout     time.Duration

	mu         sync.Mutex
	credential *Credential
}

// NewBroker creates a Broker. mintCommand runs on the control-plane
// host and must print the join fragment on stdout; ttl must exceed the
// expected duration of the whole worker-join phase.
func NewBroker(runner remote.Runner, mintCommand string, ttl, commandTimeout time.Duration) *Broker {
	return &Broker{
		runner:      runner,
		mintCommand: mintCommand,
		ttl:         ttl,
		timeout:     commandTimeout,
	}
}

// Mint creates the credential on the control-plane host. It may be
// called at most once per run; further calls return ErrAlreadyMinted.
func (b *Broker) Mint(ctx context.Context, controlPlane inventory.Host) (*Credential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.credential != nil {
		return nil, ErrAlreadyMinted
	}

	res, err := b.runner.Run(ctx, controlPlane, b.mintCommand, b.timeout)
	if err != nil {
		return nil, &MintError{Host: controlPlane.Name, Err: err}
	}
	if !res.Succeeded() {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return nil, &MintError{Host: controlPlane.Name, Detail: detail}
	}

	value := strings.TrimSpace(res.Stdout)
	if value == "" {
		return nil, &MintError{Host: controlPlane.Name, Detail: "mint command produced no output"}
	}

	b.credential = &Credential{
		value:    value,
		IssuedAt: time.Now(),
		TTL:      b.ttl,
	}
	return b.credential, nil
}

// Credential returns the minted credential, or nil before Mint.
func (b *Broker) Credential() *Credential {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.credential
}
