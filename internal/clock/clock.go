// Package clock provides a time abstraction so pacing code can be driven
// deterministically in tests.
//
// Production code uses System. Tests use Manual, which only moves forward
// when Advance is called and records every wait that was requested.
package clock

import "time"

// Clock is the subset of the time package the producer depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// System implements Clock using the time package.
type System struct{}

// NewSystem returns a Clock backed by the wall clock.
func NewSystem() System {
	return System{}
}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// After returns time.After(d).
func (System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
