package producer

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wesleyorama2/streamgen/internal/clock"
)

// Recorder receives timing information from the production loop.
// Implementations must be safe for use from the loop goroutine while other
// goroutines read from them.
type Recorder interface {
	// RecordWrite is called after every sink write with its duration and error.
	RecordWrite(d time.Duration, err error)

	// RecordCycle is called once per completed burst.
	RecordCycle(report CycleReport)
}

// RateListener is notified with the new target rate whenever it changes,
// and once with the initial rate when the producer is created.
type RateListener func(rate int)

// PayloadFunc generates the payload of the next event.
type PayloadFunc func() string

// Option configures a Producer.
type Option func(*Producer)

// WithClock sets the clock used for timing bursts and sleeping.
func WithClock(c clock.Clock) Option {
	return func(p *Producer) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Producer) {
		p.logger = l.With().Str("component", "producer").Logger()
	}
}

// WithPayload replaces the default UUID payload generator.
func WithPayload(fn PayloadFunc) Option {
	return func(p *Producer) {
		if fn != nil {
			p.payload = fn
		}
	}
}

// WithRecorder attaches a timing recorder, e.g. a metrics engine.
func WithRecorder(r Recorder) Option {
	return func(p *Producer) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithRateListener adds a listener for rate changes.
func WithRateListener(fn RateListener) Option {
	return func(p *Producer) {
		if fn != nil {
			p.listeners = append(p.listeners, fn)
		}
	}
}

// NewUUIDPayload returns a random UUID string.
func NewUUIDPayload() string {
	return uuid.NewString()
}

type nopRecorder struct{}

func (nopRecorder) RecordWrite(time.Duration, error) {}
func (nopRecorder) RecordCycle(CycleReport) {}
