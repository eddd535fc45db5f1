// Package control implements the line-oriented control surface that changes
// the producer's rate at runtime.
package control

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesleyorama2/streamgen/internal/clock"
)

// DefaultIdleInterval is the pause after an unusable line.
const DefaultIdleInterval = 100 * time.Millisecond

// ErrExit is returned by Run when an exit command was read.
var ErrExit = errors.New("exit requested")

// RateSetter receives rate changes.
type RateSetter interface {
	SetRate(rate int) error
}

// Option configures a Reader.
type Option func(*Reader)

// WithIdleInterval sets the pause after an unusable line.
func WithIdleInterval(d time.Duration) Option {
	return func(r *Reader) {
		r.idle = d
	}
}

// WithClock sets the clock used for idling.
func WithClock(c clock.Clock) Option {
	return func(r *Reader) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = l.With().Str("component", "control").Logger()
	}
}

// WithRejectHandler registers fn to be called for every line that was not
// applied, together with the reason.
func WithRejectHandler(fn func(line string, err error)) Option {
	return func(r *Reader) {
		r.onReject = fn
	}
}

// Reader applies commands read line by line from an input stream.
type Reader struct {
	in       io.Reader
	target   RateSetter
	idle     time.Duration
	clock    clock.Clock
	logger   zerolog.Logger
	onReject func(line string, err error)
}

// NewReader creates a reader that applies commands from in to target.
func NewReader(in io.Reader, target RateSetter, opts ...Option) *Reader {
	r := &Reader{
		in:     in,
		target: target,
		idle:   DefaultIdleInterval,
		clock:  clock.NewSystem(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scanResult struct {
	line string
	err  error
	eof  bool
}

// Run consumes input until it ends, an exit command is read or ctx is
// cancelled. It returns ErrExit for an exit command, nil at end of input,
// ctx.Err() on cancellation and the read error otherwise.
//
// Reads happen on a separate goroutine. Blocking reads cannot be
// interrupted, so after cancellation that goroutine lives until the next
// line or the end of input.
func (r *Reader) Run(ctx context.Context) error {
	results := make(chan scanResult)
	quit := make(chan struct{})
	defer close(quit)

	go r.scan(results, quit)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			if res.eof {
				if res.err != nil {
					return res.err
				}
				r.logger.Debug().Msg("end of control input")
				return nil
			}
			if r.handle(ctx, res.line) {
				return ErrExit
			}
		}
	}
}

func (r *Reader) scan(results chan<- scanResult, quit <-chan struct{}) {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		select {
		case results <- scanResult{line: scanner.Text()}:
		case <-quit:
			return
		}
	}

	select {
	case results <- scanResult{eof: true, err: scanner.Err()}:
	case <-quit:
	}
}

// handle applies one line and reports whether it asked to exit.
func (r *Reader) handle(ctx context.Context, line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		r.reject(ctx, line, err)
		return false
	}

	switch cmd.Kind {
	case KindExit:
		r.logger.Info().Msg("exit requested")
		return true
	case KindRate:
		if err := r.target.SetRate(cmd.Rate); err != nil {
			r.reject(ctx, line, err)
		}
	}
	return false
}

func (r *Reader) reject(ctx context.Context, line string, err error) {
	if !errors.Is(err, ErrEmptyCommand) {
		r.logger.Warn().Err(err).Str("input", line).Msg("ignoring control input")
		if r.onReject != nil {
			r.onReject(line, err)
		}
	}

	if r.idle > 0 {
		select {
		case <-ctx.Done():
		case <-r.clock.After(r.idle):
		}
	}
}
