package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// DefaultNamespace prefixes every exported metric.
const DefaultNamespace = "streamgen"

// partitionTimeout bounds a partition lookup done during a scrape.
const partitionTimeout = 2 * time.Second

// RateSource exposes the current target rate.
type RateSource interface {
	Rate() int
}

// PartitionSource reports the number of partitions of the target stream.
type PartitionSource interface {
	Partitions(ctx context.Context) (int, error)
}

// ExporterConfig configures the HTTP endpoint.
type ExporterConfig struct {
	// Addr is the listen address, e.g. ":5001".
	Addr string

	// Path serves the metrics (default: /metrics).
	Path string

	// Namespace prefixes metric names (default: streamgen).
	Namespace string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPartitionSource adds the <namespace>_num_of_partitions gauge.
func WithPartitionSource(src PartitionSource) ExporterOption {
	return func(e *Exporter) {
		e.partitions = src
	}
}

// WithExporterLogger sets the logger.
func WithExporterLogger(l zerolog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = l.With().Str("component", "exporter").Logger()
	}
}

// Exporter serves producer metrics in the Prometheus text format.
type Exporter struct {
	config     ExporterConfig
	registry   *prometheus.Registry
	rate       RateSource
	engine     *Engine
	partitions PartitionSource
	logger     zerolog.Logger

	lastPartitions   float64
	lastPartitionsMu sync.Mutex

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewExporter registers the producer metrics. engine may be nil, in which
// case only the rate gauge (and the partition gauge, if configured) is
// exported.
func NewExporter(cfg ExporterConfig, rate RateSource, engine *Engine, opts ...ExporterOption) (*Exporter, error) {
	if rate == nil {
		return nil, errors.New("rate source is required")
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	e := &Exporter{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		rate:     rate,
		engine:   engine,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.register(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Exporter) register() error {
	ns := e.config.Namespace

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: ns}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "producer",
			Name:      "event_rate_per_second",
			Help:      "Target number of events emitted per second.",
		}, func() float64 {
			return float64(e.rate.Rate())
		}),
	}

	if e.engine != nil {
		cs = append(cs,
			e.counter("events_total", "Events accepted by the sink.", e.engine.EventsSent),
			e.counter("cycles_total", "Completed one-second cycles.", e.engine.Cycles),
			e.counter("overrun_cycles_total", "Cycles whose burst used the whole second.", e.engine.OverrunCycles),
			e.counter("write_failures_total", "Sink writes that returned an error.", e.engine.WriteFailures),
		)
	}

	if e.partitions != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "num_of_partitions",
			Help:      "Number of partitions of the target stream.",
		}, e.readPartitions))
	}

	for _, c := range cs {
		if err := e.registry.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}
	return nil
}

func (e *Exporter) counter(name, help string, read func() int64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: e.config.Namespace,
		Subsystem: "producer",
		Name:      name,
		Help:      help,
	}, func() float64 {
		return float64(read())
	})
}

// readPartitions asks the partition source, falling back to the last known
// value when the lookup fails.
func (e *Exporter) readPartitions() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), partitionTimeout)
	defer cancel()

	n, err := e.partitions.Partitions(ctx)

	e.lastPartitionsMu.Lock()
	defer e.lastPartitionsMu.Unlock()

	if err != nil {
		e.logger.Warn().Err(err).Msg("partition lookup failed")
		return e.lastPartitions
	}
	e.lastPartitions = float64(n)
	return e.lastPartitions
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the HTTP handler serving the metrics path.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(e.config.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		Registry: e.registry,
	}))
	return mux
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly; later serve errors are logged.
func (e *Exporter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil {
		return errors.New("exporter already started")
	}

	ln, err := net.Listen("tcp", e.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", e.config.Addr, err)
	}

	e.listener = ln
	e.server = &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	e.logger.Info().Str("addr", ln.Addr().String()).Str("path", e.config.Path).Msg("serving metrics")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (e *Exporter) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Shutdown stops the HTTP server. It is a no-op if Start was never called.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	e.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
