package remote

import (
	"errors"
	"fmt"
	"time"
)

// ConnectivityError indicates the host could not be reached at all. It
// is the only error kind the sequencer retries, since no remote side
// effect can have happened.
type ConnectivityError struct {
	Host string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach host %s: %v", e.Host, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is (or wraps) a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// TimeoutError indicates a dispatched command did not complete within
// its deadline. The remote state is explicitly unknown: the command may
// still have run to completion. Callers must follow up with a readiness
// check instead of re-issuing the command.
type TimeoutError struct {
	Host    string
	Command string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command on host %s did not complete within %v", e.Host, e.Elapsed.Round(time.Millisecond))
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
