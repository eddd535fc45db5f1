package producer

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeRate is returned when a negative target rate is requested.
	ErrNegativeRate = errors.New("rate must be >= 0")

	// ErrNilSink is returned by New when no sink is given.
	ErrNilSink = errors.New("sink is required")

	// ErrAlreadyStarted is returned by Start when the loop is already running.
	ErrAlreadyStarted = errors.New("producer already started")

	// ErrStopped is returned by Start after Stop has been called.
	ErrStopped = errors.New("producer stopped")
)

// EmissionError reports a sink failure that aborted the production loop.
//
// Sent is the number of events the sink accepted in the failed cycle before
// the error, out of Target.
type EmissionError struct {
	Cycle  int64
	Target int
	Sent   int
	Err    error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("emission failed in cycle %d after %d of %d events: %v",
		e.Cycle, e.Sent, e.Target, e.Err)
}

func (e *EmissionError) Unwrap() error {
	return e.Err
}
