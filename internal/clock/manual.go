package clock

import (
	"sort"
	"sync"
	"time"
)

// sleepBacklog bounds the number of recorded waits that have not been
// consumed by NextSleep. Older entries are dropped when it is exceeded.
const sleepBacklog = 1024

// Manual is a Clock whose time only changes through Advance.
//
// Every call to After is reported on the channel returned by Sleeps, which
// lets a test synchronise with a goroutine that has just started waiting.
//
// Manual is safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	sleeps  chan time.Duration
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:    start,
		sleeps: make(chan time.Duration, sleepBacklog),
	}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After registers a waiter that fires once the clock has been advanced by d.
// A non-positive d fires immediately.
func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- m.now
	} else {
		m.waiters = append(m.waiters, &waiter{deadline: m.now.Add(d), ch: ch})
	}

	select {
	case m.sleeps <- d:
	default:
		// Backlog full: drop the oldest entry to keep the newest.
		select {
		case <-m.sleeps:
		default:
		}
		m.sleeps <- d
	}

	return ch
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has been reached, in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)

	sort.Slice(m.waiters, func(i, j int) bool {
		return m.waiters[i].deadline.Before(m.waiters[j].deadline)
	})

	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if w.deadline.After(m.now) {
			pending = append(pending, w)
			continue
		}
		w.ch <- m.now
	}
	m.waiters = pending
}

// Waiters returns the number of After calls that have not fired yet.
func (m *Manual) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// Sleeps returns a channel carrying the duration of every After call, in order.
func (m *Manual) Sleeps() <-chan time.Duration {
	return m.sleeps
}

// NextSleep waits up to timeout (in real time) for the next After call and
// returns its duration. ok is false if no call happened in time.
func (m *Manual) NextSleep(timeout time.Duration) (d time.Duration, ok bool) {
	select {
	case d = <-m.sleeps:
		return d, true
	case <-time.After(timeout):
		return 0, false
	}
}
