package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/kubeplatform/kubestrap/internal/inventory"
)

// SSHRunner implements Runner over the SSH protocol using the host's
// credential reference (user + private key path).
type SSHRunner struct {
	dialTimeout time.Duration
}

// NewSSHRunner creates an SSH-backed Runner.
func NewSSHRunner(dialTimeout time.Duration) *SSHRunner {
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}
	return &SSHRunner{dialTimeout: dialTimeout}
}

// connect opens an SSH client connection to the host. Any failure here
// means no remote side effect happened, so it is safe to retry.
func (r *SSHRunner) connect(host inventory.Host) (*ssh.Client, error) {
	key, err := os.ReadFile(host.KeyPath)
	if err != nil {
		return nil, &ConnectivityError{Host: host.Name, Err: fmt.Errorf("failed to read SSH key: %w", err)}
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, &ConnectivityError{Host: host.Name, Err: fmt.Errorf("failed to parse SSH key: %w", err)}
	}

	cfg := &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // host keys are not pinned for freshly provisioned machines
		Timeout:         r.dialTimeout,
	}

	client, err := ssh.Dial("tcp", host.Endpoint(), cfg)
	if err != nil {
		return nil, &ConnectivityError{Host: host.Name, Err: err}
	}
	return client, nil
}

// Run implements Runner.
func (r *SSHRunner) Run(ctx context.Context, host inventory.Host, command string, timeout time.Duration) (Result, error) {
	start := time.Now()

	fail := func(err error) (Result, error) {
		return Result{
			Host:        host.Name,
			Command:     command,
			State:       StateUnknown,
			Duration:    time.Since(start),
			CompletedAt: time.Now(),
			Detail:      err.Error(),
		}, err
	}

	client, err := r.connect(host)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fail(&ConnectivityError{Host: host.Name, Err: fmt.Errorf("failed to create session: %w", err)})
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return fail(&ConnectivityError{Host: host.Name, Err: fmt.Errorf("failed to start command: %w", err)})
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case waitErr := <-done:
		return r.finish(host, command, start, stdout.String(), stderr.String(), waitErr)
	case <-deadline:
		// Abandon the in-flight command. Whether it completed remotely is
		// unknown; the caller must follow up with a readiness check.
		res, _ := fail(nil)
		res.Stdout = truncate(stdout.String())
		res.Stderr = truncate(stderr.String())
		tErr := &TimeoutError{Host: host.Name, Command: command, Elapsed: time.Since(start)}
		res.Detail = tErr.Error()
		return res, tErr
	case <-ctx.Done():
		res, _ := fail(nil)
		res.Detail = ctx.Err().Error()
		return res, ctx.Err()
	}
}

// finish builds the Result for a command whose completion was observed.
func (r *SSHRunner) finish(host inventory.Host, command string, start time.Time, stdout, stderr string, waitErr error) (Result, error) {
	res := Result{
		Host:        host.Name,
		Command:     command,
		Stdout:      truncate(stdout),
		Stderr:      truncate(stderr),
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}

	if waitErr == nil {
		res.State = StateSucceeded
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		res.State = StateFailed
		res.ExitCode = exitErr.ExitStatus()
		res.Detail = fmt.Sprintf("exit status %d", exitErr.ExitStatus())
		return res, nil
	}

	// The session ended without an exit status (connection dropped
	// mid-command). Completion was not observed.
	res.State = StateUnknown
	res.Detail = waitErr.Error()
	return res, &ConnectivityError{Host: host.Name, Err: waitErr}
}

// Upload implements Runner using SFTP.
func (r *SSHRunner) Upload(_ context.Context, host inventory.Host, localPath, remotePath string) error {
	client, err := r.connect(host)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return &ConnectivityError{Host: host.Name, Err: fmt.Errorf("failed to open sftp session: %w", err)}
	}
	defer func() { _ = sftpClient.Close() }()

	src, err := os.Open(localPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := sftpClient.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	dst, err := sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", localPath, remotePath, err)
	}
	return nil
}
