package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wesleyorama2/streamgen/internal/producer"
)

func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	if engine == nil {
		t.Fatal("NewEngine() returned nil")
	}

	snapshot := engine.Snapshot()
	if snapshot.EventsSent != 0 {
		t.Errorf("Initial EventsSent = %d, want 0", snapshot.EventsSent)
	}
	if snapshot.Cycles != 0 {
		t.Errorf("Initial Cycles = %d, want 0", snapshot.Cycles)
	}
	if snapshot.WriteLatency.Count != 0 {
		t.Errorf("Initial WriteLatency.Count = %d, want 0", snapshot.WriteLatency.Count)
	}
}

func TestEngine_RecordWrite(t *testing.T) {
	engine := NewEngine()

	engine.RecordWrite(10*time.Millisecond, nil)
	engine.RecordWrite(20*time.Millisecond, nil)
	engine.RecordWrite(30*time.Millisecond, errors.New("timeout"))

	if got := engine.EventsSent(); got != 2 {
		t.Errorf("EventsSent = %d, want 2", got)
	}
	if got := engine.WriteFailures(); got != 1 {
		t.Errorf("WriteFailures = %d, want 1", got)
	}

	snapshot := engine.Snapshot()
	if snapshot.WriteLatency.Count != 2 {
		t.Errorf("WriteLatency.Count = %d, want 2 (failures are not timed)", snapshot.WriteLatency.Count)
	}
}

func TestEngine_WritePercentiles(t *testing.T) {
	engine := NewEngine()

	if _, err := engine.WritePercentile(50); !errors.Is(err, ErrNoSamples) {
		t.Errorf("WritePercentile on empty engine: err = %v, want ErrNoSamples", err)
	}

	for i := 1; i <= 100; i++ {
		engine.RecordWrite(time.Duration(i)*time.Millisecond, nil)
	}

	snapshot := engine.Snapshot()

	// HDR histograms are accurate to the configured significant figures.
	tolerance := time.Millisecond
	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"min", snapshot.WriteLatency.Min, 1 * time.Millisecond},
		{"max", snapshot.WriteLatency.Max, 100 * time.Millisecond},
		{"p50", snapshot.WriteLatency.P50, 50 * time.Millisecond},
		{"p90", snapshot.WriteLatency.P90, 90 * time.Millisecond},
		{"p99", snapshot.WriteLatency.P99, 99 * time.Millisecond},
	}
	for _, c := range checks {
		diff := c.got - c.want
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			t.Errorf("%s = %v, want %v (±%v)", c.name, c.got, c.want, tolerance)
		}
	}

	p95, err := engine.WritePercentile(95)
	if err != nil {
		t.Fatalf("WritePercentile(95) error: %v", err)
	}
	if p95 < 94*time.Millisecond || p95 > 96*time.Millisecond {
		t.Errorf("WritePercentile(95) = %v, want ~95ms", p95)
	}
}

func TestEngine_RecordCycle(t *testing.T) {
	engine := NewEngine()

	engine.RecordCycle(producer.CycleReport{Cycle: 1, Target: 5, Sent: 5, Elapsed: 200 * time.Millisecond, Sleep: 800 * time.Millisecond})
	engine.RecordCycle(producer.CycleReport{Cycle: 2, Target: 50, Sent: 50, Elapsed: 1500 * time.Millisecond})
	engine.RecordCycle(producer.CycleReport{Cycle: 3, Target: 0, Sleep: time.Second})

	snapshot := engine.Snapshot()
	if snapshot.Cycles != 3 {
		t.Errorf("Cycles = %d, want 3", snapshot.Cycles)
	}
	if snapshot.OverrunCycles != 1 {
		t.Errorf("OverrunCycles = %d, want 1", snapshot.OverrunCycles)
	}
	if snapshot.LastTarget != 0 {
		t.Errorf("LastTarget = %d, want 0", snapshot.LastTarget)
	}
	if snapshot.BurstDuration.Count != 2 {
		t.Errorf("BurstDuration.Count = %d, want 2 (empty cycles are skipped)", snapshot.BurstDuration.Count)
	}
	if snapshot.BurstDuration.Max < 1499*time.Millisecond {
		t.Errorf("BurstDuration.Max = %v, want ~1.5s", snapshot.BurstDuration.Max)
	}
}

func TestEngine_ClampsOutOfRangeValues(t *testing.T) {
	engine := NewEngineWithConfig(EngineConfig{
		HistogramMin:     1,
		HistogramMax:     1000,
		HistogramSigFigs: 2,
	})

	engine.RecordWrite(0, nil)
	engine.RecordWrite(time.Hour, nil)

	snapshot := engine.Snapshot()
	if snapshot.WriteLatency.Count != 2 {
		t.Fatalf("WriteLatency.Count = %d, want 2", snapshot.WriteLatency.Count)
	}
	if snapshot.WriteLatency.Max > 1100*time.Microsecond {
		t.Errorf("WriteLatency.Max = %v, want clamped to ~1ms", snapshot.WriteLatency.Max)
	}
}

func TestEngine_Reset(t *testing.T) {
	engine := NewEngine()

	engine.RecordWrite(time.Millisecond, nil)
	engine.RecordWrite(time.Millisecond, errors.New("x"))
	engine.RecordCycle(producer.CycleReport{Target: 1, Sent: 1, Elapsed: 2 * time.Second})

	engine.Reset()

	snapshot := engine.Snapshot()
	if snapshot.EventsSent != 0 || snapshot.WriteFailures != 0 || snapshot.Cycles != 0 || snapshot.OverrunCycles != 0 {
		t.Errorf("counters not reset: %+v", snapshot)
	}
	if snapshot.WriteLatency.Count != 0 || snapshot.BurstDuration.Count != 0 {
		t.Error("histograms not reset")
	}
}

func TestEngine_ConcurrentAccess(t *testing.T) {
	engine := NewEngine()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				engine.RecordWrite(time.Duration(j)*time.Microsecond, nil)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = engine.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := engine.EventsSent(); got != 1000 {
		t.Errorf("EventsSent = %d, want 1000", got)
	}
}

func BenchmarkEngine_RecordWrite(b *testing.B) {
	engine := NewEngine()

	latencies := []time.Duration{
		100 * time.Microsecond,
		500 * time.Microsecond,
		1 * time.Millisecond,
		5 * time.Millisecond,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.RecordWrite(latencies[i%len(latencies)], nil)
	}
}
