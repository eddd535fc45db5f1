// Package output renders the human-facing console output of streamgen.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/streamgen/internal/metrics"
	"github.com/wesleyorama2/streamgen/internal/producer"
)

const ruleWidth = 56

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	Quiet       bool
	NoColor     bool
	ForceColors bool
}

// Console prints the banner, rate changes and the final summary.
// It is safe for concurrent use.
type Console struct {
	mu        sync.Mutex
	writer    io.Writer
	colors    *ColorScheme
	useColors bool
	quiet     bool
}

// NewConsole creates a console writer.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	useColors := config.ForceColors || (!config.NoColor && isTerminal(config.Writer) && supportsColors())

	colors := NoColorScheme()
	if useColors {
		colors = DefaultColorScheme().forceColors()
	}

	return &Console{
		writer:    config.Writer,
		colors:    colors,
		useColors: useColors,
		quiet:     config.Quiet,
	}
}

// Banner describes a production run.
type Banner struct {
	Version    string
	Sink       string
	Topic      string
	Brokers    string
	MetricsURL string
	Rate       int
}

// PrintBanner prints the run header.
func (c *Console) PrintBanner(b Banner) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rule := c.colors.Muted.Sprint(strings.Repeat("━", ruleWidth))
	title := "streamgen"
	if b.Version != "" {
		title += " " + b.Version
	}

	c.writeln(rule)
	c.writeln(c.colors.Title.Sprint(title))
	c.writeln(rule)
	c.row("Sink", b.Sink)
	if b.Topic != "" {
		c.row("Topic", b.Topic)
	}
	if b.Brokers != "" {
		c.row("Brokers", b.Brokers)
	}
	if b.MetricsURL != "" {
		c.row("Metrics", b.MetricsURL)
	}
	c.row("Initial rate", fmt.Sprintf("%d/s", b.Rate))
	c.writeln("")
	c.writeln(c.colors.Muted.Sprint("Type a number to change the rate, or exit to stop."))
	c.writeln("")
}

// PrintRate announces a new target rate. It is printed even in quiet mode.
func (c *Console) PrintRate(rate int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(fmt.Sprintf("Producing %s events per second", c.colors.Rate.Sprint(rate)))
}

// Warn prints a warning line.
func (c *Console) Warn(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(c.colors.Warn.Sprint("⚠ ") + fmt.Sprintf(format, args...))
}

// Summary is the outcome of a production run.
type Summary struct {
	Duration time.Duration
	Stats    producer.Stats
	Metrics  *metrics.Snapshot
	Err      error
}

// PrintSummary prints the final summary.
func (c *Console) PrintSummary(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.colors.Success.Sprint("Stopped ✓")
	if s.Err != nil {
		status = c.colors.Error.Sprint("Failed ✗")
	}

	if c.quiet {
		c.writeln(status)
		if s.Err != nil {
			c.writeln(s.Err.Error())
		}
		return
	}

	rule := c.colors.Muted.Sprint(strings.Repeat("━", ruleWidth))

	c.writeln("")
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s - %s", c.colors.Title.Sprint("streamgen"), status))
	c.writeln(rule)

	c.row("Duration", formatDuration(s.Duration))
	c.row("Cycles", formatNumber(s.Stats.Cycles))
	c.row("Events", formatNumber(s.Stats.EventsSent))
	c.row("Final rate", fmt.Sprintf("%d/s", s.Stats.Rate))

	if m := s.Metrics; m != nil {
		if m.OverrunCycles > 0 {
			c.row("Overruns", c.colors.Warn.Sprint(formatNumber(m.OverrunCycles)))
		}
		if m.WriteFailures > 0 {
			c.row("Failed writes", c.colors.Error.Sprint(formatNumber(m.WriteFailures)))
		}
		if m.WriteLatency.Count > 0 {
			c.writeln("")
			c.writeln(c.colors.Title.Sprint("Write latency:"))
			c.row("  P50", formatDurationShort(m.WriteLatency.P50))
			c.row("  P95", formatDurationShort(m.WriteLatency.P95))
			c.row("  P99", formatDurationShort(m.WriteLatency.P99))
			c.row("  Max", formatDurationShort(m.WriteLatency.Max))
		}
		if m.BurstDuration.Count > 0 {
			c.writeln("")
			c.writeln(c.colors.Title.Sprint("Burst duration:"))
			c.row("  P50", formatDurationShort(m.BurstDuration.P50))
			c.row("  Max", formatDurationShort(m.BurstDuration.Max))
		}
	}

	if s.Err != nil {
		c.writeln("")
		c.writeln(c.colors.Error.Sprint("Error: ") + s.Err.Error())
	}
	c.writeln("")
}

// row writes an aligned "label: value" line.
func (c *Console) row(label, value string) {
	c.writeln(fmt.Sprintf("%s %s", c.colors.Label.Sprintf("%-14s", label+":"), c.colors.Value.Sprint(value)))
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatDurationShort formats a latency.
func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
