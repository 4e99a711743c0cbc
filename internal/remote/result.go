package remote

import (
	"time"
)

// maxCapturedOutput caps how much of each output stream is kept in a
// Result. Remote commands can be chatty; reports only need the tail.
const maxCapturedOutput = 8 << 10

// State describes the observed completion state of a remote command.
type State string

const (
	// StateSucceeded means the command completed with exit status 0.
	StateSucceeded State = "succeeded"
	// StateFailed means the command completed with a non-zero exit status
	// or could not be delivered after connectivity retries.
	StateFailed State = "failed"
	// StateUnknown means completion was never observed: the command timed
	// out or was cancelled before dispatch. The remote side effect may or
	// may not have happened.
	StateUnknown State = "unknown"
)

// Result records the outcome of a single command on a single host.
// It is immutable once recorded.
type Result struct {
	Host        string
	Command     string
	ExitCode    int
	Stdout      string
	Stderr      string
	Duration    time.Duration
	CompletedAt time.Time
	State       State
	// Detail carries the transport-level error text, if any.
	Detail string
}

// Succeeded reports whether the command is known to have completed
// successfully.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Failed reports whether the command is known to have failed. An
// unknown state is neither a success nor a failure.
func (r Result) Failed() bool {
	return r.State == StateFailed
}

// truncate trims s to the last maxCapturedOutput bytes.
func truncate(s string) string {
	if len(s) <= maxCapturedOutput {
		return s
	}
	return "...(truncated)..." + s[len(s)-maxCapturedOutput:]
}
