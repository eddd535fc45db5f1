// Package sink provides the destinations events are written to.
//
// The Kafka sink is the production target. Writer, Discard and Recorder
// exist for dry runs, benchmarking the pacing loop and tests.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/wesleyorama2/streamgen/internal/config"
)

// Sink accepts events synchronously.
type Sink interface {
	// WriteEvent writes one event and returns once it has been accepted or failed.
	WriteEvent(ctx context.Context, payload string) error

	// Close flushes and releases the sink.
	Close() error
}

// Options holds dependencies for New that do not come from configuration.
type Options struct {
	// Stdout is the destination of the stdout sink. Defaults to os.Stdout.
	Stdout io.Writer

	Logger zerolog.Logger
}

// New builds the sink selected by cfg.Sink.Type.
func New(cfg *config.Config, opts Options) (Sink, error) {
	switch cfg.Sink.Type {
	case config.SinkKafka:
		return NewKafka(cfg, opts.Logger)
	case config.SinkStdout:
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return NewWriter(out), nil
	case config.SinkDiscard:
		return NewDiscard(), nil
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}
}
