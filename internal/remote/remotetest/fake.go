// Package remotetest provides a scriptable in-memory Runner for tests.
package remotetest

import (
	"context"
	"sync"
	"time"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote"
)

// Call records one dispatched command.
type Call struct {
	Host    string
	Command string
}

// Upload records one file transfer.
type Upload struct {
	Host       string
	LocalPath  string
	RemotePath string
}

// Handler decides the outcome of a command. Returning a nil error with
// a failed Result models a remote non-zero exit.
type Handler func(host inventory.Host, command string) (remote.Result, error)

// FakeRunner implements remote.Runner with scriptable responses.
// By default every command succeeds with exit status 0.
type FakeRunner struct {
	mu       sync.Mutex
	calls    []Call
	uploads  []Upload
	handlers []Handler

	// OnRun, when set, handles every command.
	OnRun Handler
	// OnUpload, when set, decides upload outcomes.
	OnUpload func(host inventory.Host, localPath, remotePath string) error
}

// Succeed builds a successful Result for host and command.
func Succeed(host, command, stdout string) remote.Result {
	return remote.Result{
		Host:        host,
		Command:     command,
		Stdout:      stdout,
		State:       remote.StateSucceeded,
		CompletedAt: time.Now(),
	}
}

// Fail builds a failed Result with the given exit code.
func Fail(host, command string, exitCode int, stderr string) remote.Result {
	return remote.Result{
		Host:        host,
		Command:     command,
		ExitCode:    exitCode,
		Stderr:      stderr,
		State:       remote.StateFailed,
		CompletedAt: time.Now(),
	}
}

// Run implements remote.Runner.
func (f *FakeRunner) Run(_ context.Context, host inventory.Host, command string, _ time.Duration) (remote.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Host: host.Name, Command: command})
	handler := f.OnRun
	if len(f.handlers) > 0 {
		handler = f.handlers[0]
		f.handlers = f.handlers[1:]
	}
	f.mu.Unlock()

	if handler != nil {
		return handler(host, command)
	}
	return Succeed(host.Name, command, ""), nil
}

// Upload implements remote.Runner.
func (f *FakeRunner) Upload(_ context.Context, host inventory.Host, localPath, remotePath string) error {
	f.mu.Lock()
	f.uploads = append(f.uploads, Upload{Host: host.Name, LocalPath: localPath, RemotePath: remotePath})
	f.mu.Unlock()

	if f.OnUpload != nil {
		return f.OnUpload(host, localPath, remotePath)
	}
	return nil
}

// Enqueue appends one-shot handlers consumed in order before OnRun.
func (f *FakeRunner) Enqueue(handlers ...Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handlers...)
}

// Calls returns a copy of all dispatched commands.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the commands dispatched to the named host.
func (f *FakeRunner) CallsFor(host string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Host == host {
			out = append(out, c)
		}
	}
	return out
}

// Uploads returns a copy of all recorded uploads.
func (f *FakeRunner) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Upload, len(f.uploads))
	copy(out, f.uploads)
	return out
}
