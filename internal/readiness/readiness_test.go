package readiness

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeplatform/kubestrap/internal/inventory"
	"github.com/kubeplatform/kubestrap/internal/remote"
	"github.com/kubeplatform/kubestrap/internal/remote/remotetest"
)

// stubProbe reports ready after a fixed number of checks.
type stubProbe struct {
	readyAfter int
	checks     int
}

func (p *stubProbe) Name() string { return "stub" }

func (p *stubProbe) Check(context.Context) (bool, string) {
	p.checks++
	if p.checks >= p.readyAfter {
		return true, "ready"
	}
	return false, "not yet"
}

func TestAwait_ReadyImmediately(t *testing.T) {
	t.Parallel()
	outcome := Await(context.Background(), &stubProbe{readyAfter: 1}, time.Millisecond, time.Second)
	assert.True(t, outcome.Ready)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, "ready", outcome.LastDetail)
}

func TestAwait_ReadyAfterPolling(t *testing.T) {
	t.Parallel()
	outcome := Await(context.Background(), &stubProbe{readyAfter: 3}, time.Millisecond, time.Second)
	assert.True(t, outcome.Ready)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestAwait_TimedOutCarriesDiagnostics(t *testing.T) {
	t.Parallel()
	outcome := Await(context.Background(), &stubProbe{readyAfter: 1000}, time.Millisecond, 20*time.Millisecond)
	assert.False(t, outcome.Ready)
	assert.GreaterOrEqual(t, outcome.Attempts, 1)
	assert.Equal(t, "not yet", outcome.LastDetail)
	assert.GreaterOrEqual(t, outcome.Elapsed, 20*time.Millisecond)
}

func TestAwait_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := Await(ctx, &stubProbe{readyAfter: 1000}, 50*time.Millisecond, time.Minute)
	assert.False(t, outcome.Ready)
	assert.Contains(t, outcome.LastDetail, "cancelled")
}

func TestHTTPProbe(t *testing.T) {
	t.Parallel()

	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	probe := &HTTPProbe{URL: srv.URL + "/healthz"}

	ok, detail := probe.Check(context.Background())
	assert.False(t, ok)
	assert.Contains(t, detail, "503")

	status = http.StatusOK
	ok, detail = probe.Check(context.Background())
	assert.True(t, ok)
	assert.Contains(t, detail, "200")
}

func TestTCPProbe(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	open := &TCPProbe{Address: listener.Addr().String(), DialTimeout: time.Second}
	ok, _ := open.Check(context.Background())
	assert.True(t, ok)

	closed := &TCPProbe{Address: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}
	ok, detail := closed.Check(context.Background())
	assert.False(t, ok)
	assert.NotEmpty(t, detail)
}

func TestCommandProbe(t *testing.T) {
	t.Parallel()
	host := inventory.Host{Name: "cp-1", Role: inventory.RoleControlPlane}

	t.Run("exit zero is ready", func(t *testing.T) {
		t.Parallel()
		runner := &remotetest.FakeRunner{}
		probe := &CommandProbe{Runner: runner, Host: host, Command: "kubectl get --raw=/readyz"}
		ok, _ := probe.Check(context.Background())
		assert.True(t, ok)
	})

	t.Run("non-zero exit is not ready", func(t *testing.T) {
		t.Parallel()
		runner := &remotetest.FakeRunner{
			OnRun: func(h inventory.Host, cmd string) (remote.Result, error) {
				return remotetest.Fail(h.Name, cmd, 1, "connection refused"), nil
			},
		}
		probe := &CommandProbe{Runner: runner, Host: host, Command: "kubectl get --raw=/readyz"}
		ok, detail := probe.Check(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "connection refused", detail)
	})

	t.Run("transport error is not ready", func(t *testing.T) {
		t.Parallel()
		runner := &remotetest.FakeRunner{
			OnRun: func(h inventory.Host, _ string) (remote.Result, error) {
				return remote.Result{Host: h.Name, State: remote.StateUnknown},
					&remote.ConnectivityError{Host: h.Name, Err: errors.New("no route")}
			},
		}
		probe := &CommandProbe{Runner: runner, Host: host, Command: "true"}
		ok, detail := probe.Check(context.Background())
		assert.False(t, ok)
		assert.Contains(t, detail, "no route")
	})
}

func TestCountProbe(t *testing.T) {
	t.Parallel()
	host := inventory.Host{Name: "cp-1", Role: inventory.RoleControlPlane}

	check := func(t *testing.T, stdout string, expected int) (bool, string) {
		t.Helper()
		runner := &remotetest.FakeRunner{
			OnRun: func(h inventory.Host, cmd string) (remote.Result, error) {
				return remotetest.Succeed(h.Name, cmd, stdout), nil
			},
		}
		probe := &CountProbe{Runner: runner, Host: host, Command: "count nodes", Expected: expected}
		return probe.Check(context.Background())
	}

	ok, detail := check(t, "3\n", 3)
	assert.True(t, ok)
	assert.Equal(t, "3/3", detail)

	ok, detail = check(t, "2\n", 3)
	assert.False(t, ok)
	assert.Equal(t, "2/3", detail)

	ok, detail = check(t, "not-a-number", 3)
	assert.False(t, ok)
	assert.Contains(t, detail, "unparseable")
}
