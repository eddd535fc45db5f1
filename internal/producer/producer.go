// Package producer implements the self-pacing event production loop.
//
// A Producer emits its target rate's worth of events to a Sink, measures how
// long the burst took and sleeps for the rest of the one-second cycle. The
// target rate can be read and changed from any goroutine at any time; a
// change takes effect on the next cycle.
//
// # Lifecycle
//
//	p, _ := producer.New(sink, 2)
//	_ = p.Start(ctx)   // returns immediately
//	_ = p.SetRate(100) // from any goroutine
//	_ = p.Stop()       // blocks until the loop has exited
//
// Stop never interrupts a burst in progress, but it does wake the loop from
// its sleep, so it returns as soon as the current burst has been written.
//
// A sink error aborts the loop. The error is available from Err and Wait as
// an *EmissionError carrying the partial count of the failed cycle.
package producer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesleyorama2/streamgen/internal/clock"
)

// CycleBudget is the wall time allotted to one cycle.
const CycleBudget = time.Second

// Sink accepts events from the loop. WriteEvent must not return before the
// event has been handed off (or has failed).
type Sink interface {
	WriteEvent(ctx context.Context, payload string) error
}

// CycleReport describes one completed burst.
type CycleReport struct {
	Cycle   int64         `json:"cycle"`
	Target  int           `json:"target"`
	Sent    int           `json:"sent"`
	Elapsed time.Duration `json:"elapsed"`
	Sleep   time.Duration `json:"sleep"`
}

// Overrun reports whether the burst used the whole cycle budget.
func (r CycleReport) Overrun() bool {
	return r.Elapsed >= CycleBudget
}

// Stats is a point-in-time view of a producer.
type Stats struct {
	Rate       int          `json:"rate"`
	Running    bool         `json:"running"`
	Cycles     int64        `json:"cycles"`
	EventsSent int64        `json:"eventsSent"`
	LastCycle  *CycleReport `json:"lastCycle,omitempty"`
}

// Producer runs the pacing loop.
type Producer struct {
	sink      Sink
	clock     clock.Clock
	payload   PayloadFunc
	recorder  Recorder
	listeners []RateListener
	logger    zerolog.Logger

	// Shared with controllers; atomics only.
	rate    atomic.Int64
	running atomic.Bool

	// Lifecycle transitions
	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	// Stats
	cycles    atomic.Int64
	events    atomic.Int64
	lastCycle atomic.Pointer[CycleReport]

	errMu sync.Mutex
	err   error
}

// New creates a producer that writes to sink at initialRate events per second.
// The loop does not run until Start is called.
func New(sink Sink, initialRate int, opts ...Option) (*Producer, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if initialRate < 0 {
		return nil, ErrNegativeRate
	}

	p := &Producer{
		sink:     sink,
		clock:    clock.NewSystem(),
		payload:  NewUUIDPayload,
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.rate.Store(int64(initialRate))
	p.running.Store(true)
	p.notifyRate(initialRate)

	return p, nil
}

// Rate returns the current target rate in events per second.
func (p *Producer) Rate() int {
	return int(p.rate.Load())
}

// SetRate changes the target rate. The new value is used from the next cycle
// on; a burst or sleep in progress is not interrupted.
func (p *Producer) SetRate(rate int) error {
	if rate < 0 {
		return ErrNegativeRate
	}

	old := p.rate.Swap(int64(rate))
	p.logger.Debug().Int64("previous", old).Int("rate", rate).Msg("target rate updated")
	p.notifyRate(rate)
	return nil
}

func (p *Producer) notifyRate(rate int) {
	for _, fn := range p.listeners {
		fn(rate)
	}
}

// Running reports whether the producer has not been asked to stop.
func (p *Producer) Running() bool {
	return p.running.Load()
}

// Start launches the loop on its own goroutine. Cancelling ctx stops the
// loop like Stop does: the burst in progress is completed first. Sink writes
// see ctx's values but never its cancellation.
func (p *Producer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if !p.running.Load() {
		return ErrStopped
	}
	p.started = true

	go p.run(ctx)
	return nil
}

// Stop requests termination and blocks until the loop has exited. It is
// safe to call more than once and from several goroutines; every call
// returns nil once the loop is gone. Calling Stop on a producer that was
// never started returns immediately.
func (p *Producer) Stop() error {
	p.mu.Lock()
	p.stopOnce.Do(func() {
		p.running.Store(false)
		close(p.stopCh)
	})
	if !p.started {
		p.signalDone()
	}
	p.mu.Unlock()

	<-p.done
	return nil
}

// Done returns a channel that is closed once the loop has exited, either
// because of Stop, context cancellation or an emission failure.
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the loop has exited and returns its terminal error.
func (p *Producer) Wait() error {
	<-p.done
	return p.Err()
}

// Err returns the error that aborted the loop, or nil.
func (p *Producer) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Stats returns a snapshot of the producer's counters.
func (p *Producer) Stats() Stats {
	return Stats{
		Rate:       p.Rate(),
		Running:    p.Running(),
		Cycles:     p.cycles.Load(),
		EventsSent: p.events.Load(),
		LastCycle:  p.lastCycle.Load(),
	}
}

func (p *Producer) signalDone() {
	p.doneOnce.Do(func() {
		close(p.done)
	})
}

func (p *Producer) run(ctx context.Context) {
	defer p.signalDone()

	p.logger.Info().Int("rate", p.Rate()).Msg("producer started")

	for cycle := int64(1); p.running.Load() && ctx.Err() == nil; cycle++ {
		report, err := p.runCycle(ctx, cycle)
		if err != nil {
			p.setErr(err)
			p.running.Store(false)
			p.logger.Error().Err(err).Int64("cycle", cycle).Msg("producer aborted")
			return
		}

		if !p.pause(ctx, report.Sleep) {
			break
		}
	}

	p.running.Store(false)
	p.logger.Info().
		Int64("cycles", p.cycles.Load()).
		Int64("events", p.events.Load()).
		Msg("producer stopped")
}

// runCycle emits one burst and returns its report, including the sleep that
// should follow it.
func (p *Producer) runCycle(ctx context.Context, cycle int64) (CycleReport, error) {
	target := p.Rate()
	start := p.clock.Now()
	writeCtx := context.WithoutCancel(ctx)

	sent := 0
	for sent < target {
		writeStart := p.clock.Now()
		err := p.sink.WriteEvent(writeCtx, p.payload())
		p.recorder.RecordWrite(clock.Since(p.clock, writeStart), err)
		if err != nil {
			return CycleReport{}, &EmissionError{Cycle: cycle, Target: target, Sent: sent, Err: err}
		}
		sent++
		p.events.Add(1)
	}

	elapsed := clock.Since(p.clock, start)
	sleep := CycleBudget - elapsed
	if sleep < 0 {
		sleep = 0
	}

	report := CycleReport{
		Cycle:   cycle,
		Target:  target,
		Sent:    sent,
		Elapsed: elapsed,
		Sleep:   sleep,
	}
	p.cycles.Add(1)
	p.lastCycle.Store(&report)
	p.recorder.RecordCycle(report)

	if report.Overrun() {
		p.logger.Warn().
			Int64("cycle", cycle).
			Int("target", target).
			Dur("elapsed", elapsed).
			Msg("burst exceeded cycle budget")
	}

	return report, nil
}

// pause sleeps for d unless a stop is requested first. It returns false if
// the loop should exit.
func (p *Producer) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-p.stopCh:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	select {
	case <-p.stopCh:
		p.logger.Debug().Dur("remaining", d).Msg("stop requested during sleep")
		return false
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}

func (p *Producer) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err == nil {
		p.err = err
	}
}
