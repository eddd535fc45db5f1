// Package metrics records producer timings and exports them to Prometheus.
package metrics

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/wesleyorama2/streamgen/internal/producer"
)

// Engine collects write latencies and burst durations using HDR histograms.
//
// Counters use atomic operations; each histogram has its own mutex since
// hdrhistogram is not safe for concurrent use. The producer loop writes,
// the exporter and the console summary read.
type Engine struct {
	writeHist   *hdrhistogram.Histogram
	writeHistMu sync.Mutex

	burstHist   *hdrhistogram.Histogram
	burstHistMu sync.Mutex

	eventsSent    atomic.Int64
	writeFailures atomic.Int64
	cycles        atomic.Int64
	overruns      atomic.Int64
	lastTarget    atomic.Int64

	startTime time.Time
	config    EngineConfig
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}

// NewEngine creates a metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a metrics engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	return &Engine{
		writeHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		burstHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		startTime: time.Now(),
		config:    config,
	}
}

// RecordWrite records the duration and outcome of one sink write.
func (e *Engine) RecordWrite(d time.Duration, err error) {
	if err != nil {
		e.writeFailures.Add(1)
		return
	}
	e.eventsSent.Add(1)

	e.writeHistMu.Lock()
	_ = e.writeHist.RecordValue(e.clamp(d))
	e.writeHistMu.Unlock()
}

// RecordCycle records a completed burst.
func (e *Engine) RecordCycle(report producer.CycleReport) {
	e.cycles.Add(1)
	e.lastTarget.Store(int64(report.Target))
	if report.Overrun() {
		e.overruns.Add(1)
	}

	// Empty cycles carry no timing information.
	if report.Target == 0 {
		return
	}

	e.burstHistMu.Lock()
	_ = e.burstHist.RecordValue(e.clamp(report.Elapsed))
	e.burstHistMu.Unlock()
}

// clamp converts d to microseconds within the histogram's range.
func (e *Engine) clamp(d time.Duration) int64 {
	v := d.Microseconds()
	if v < e.config.HistogramMin {
		v = e.config.HistogramMin
	}
	if v > e.config.HistogramMax {
		v = e.config.HistogramMax
	}
	return v
}

// EventsSent returns the number of successful writes.
func (e *Engine) EventsSent() int64 {
	return e.eventsSent.Load()
}

// WriteFailures returns the number of failed writes.
func (e *Engine) WriteFailures() int64 {
	return e.writeFailures.Load()
}

// Cycles returns the number of completed bursts.
func (e *Engine) Cycles() int64 {
	return e.cycles.Load()
}

// OverrunCycles returns the number of bursts that used the whole cycle budget.
func (e *Engine) OverrunCycles() int64 {
	return e.overruns.Load()
}

// Snapshot returns a point-in-time view of all metrics.
func (e *Engine) Snapshot() *Snapshot {
	e.writeHistMu.Lock()
	write := statsOf(e.writeHist)
	e.writeHistMu.Unlock()

	e.burstHistMu.Lock()
	burst := statsOf(e.burstHist)
	e.burstHistMu.Unlock()

	elapsed := time.Since(e.startTime)
	sent := e.eventsSent.Load()

	throughput := 0.0
	if elapsed.Seconds() > 0 {
		throughput = float64(sent) / elapsed.Seconds()
	}

	return &Snapshot{
		EventsSent:    sent,
		WriteFailures: e.writeFailures.Load(),
		Cycles:        e.cycles.Load(),
		OverrunCycles: e.overruns.Load(),
		LastTarget:    int(e.lastTarget.Load()),
		WriteLatency:  write,
		BurstDuration: burst,
		Throughput:    throughput,
		Elapsed:       elapsed,
		StartTime:     e.startTime,
		Timestamp:     time.Now(),
	}
}

// Reset clears all metrics.
func (e *Engine) Reset() {
	e.writeHistMu.Lock()
	e.writeHist.Reset()
	e.writeHistMu.Unlock()

	e.burstHistMu.Lock()
	e.burstHist.Reset()
	e.burstHistMu.Unlock()

	e.eventsSent.Store(0)
	e.writeFailures.Store(0)
	e.cycles.Store(0)
	e.overruns.Store(0)
	e.lastTarget.Store(0)
	e.startTime = time.Now()
}

// ErrNoSamples is returned by Percentile when nothing has been recorded.
var ErrNoSamples = errors.New("no samples recorded")

// WritePercentile returns the write latency at quantile q (0-100).
func (e *Engine) WritePercentile(q float64) (time.Duration, error) {
	e.writeHistMu.Lock()
	defer e.writeHistMu.Unlock()

	if e.writeHist.TotalCount() == 0 {
		return 0, ErrNoSamples
	}
	return time.Duration(e.writeHist.ValueAtQuantile(q)) * time.Microsecond, nil
}

func statsOf(h *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(h.Min()) * time.Microsecond,
		Max:    time.Duration(h.Max()) * time.Microsecond,
		Mean:   time.Duration(h.Mean()) * time.Microsecond,
		StdDev: time.Duration(h.StdDev()) * time.Microsecond,
		P50:    time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Count:  h.TotalCount(),
	}
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	EventsSent    int64         `json:"eventsSent"`
	WriteFailures int64         `json:"writeFailures"`
	Cycles        int64         `json:"cycles"`
	OverrunCycles int64         `json:"overrunCycles"`
	LastTarget    int           `json:"lastTarget"`
	WriteLatency  LatencyStats  `json:"writeLatency"`
	BurstDuration LatencyStats  `json:"burstDuration"`
	Throughput    float64       `json:"throughput"`
	Elapsed       time.Duration `json:"elapsed"`
	StartTime     time.Time     `json:"startTime"`
	Timestamp     time.Time     `json:"timestamp"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}

var _ producer.Recorder = (*Engine)(nil)
