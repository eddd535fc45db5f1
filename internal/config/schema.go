// Package config loads and validates streamgen configuration files.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultScope             = "flinkScope"
	DefaultStreamName        = "flinkStream"
	DefaultController        = "tcp://localhost:9092"
	DefaultMetricsPort       = 5001
	DefaultMetricsPath       = "/metrics"
	DefaultMetricsNamespace  = "streamgen"
	DefaultRate              = 2
	DefaultPartitions        = 1
	DefaultReplicationFactor = 1
	DefaultIdleInterval      = 100 * time.Millisecond
	DefaultWriteTimeout      = 10 * time.Second
)

// Sink types.
const (
	SinkKafka   = "kafka"
	SinkStdout  = "stdout"
	SinkDiscard = "discard"
)

// Config is the root configuration.
//
// Example YAML:
//
//	producer:
//	  rate: 100
//	stream:
//	  controller: tcp://kafka-0:9092,kafka-1:9092
//	  scope: loadtest
//	  name: events
//	  partitions: 4
//	sink:
//	  type: kafka
//	  requiredAcks: all
//	metrics:
//	  port: 9093
//	log:
//	  level: debug
type Config struct {
	Producer ProducerConfig `json:"producer" yaml:"producer"`
	Stream   StreamConfig   `json:"stream" yaml:"stream"`
	Sink     SinkConfig     `json:"sink" yaml:"sink"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Control  ControlConfig  `json:"control" yaml:"control"`
}

// ProducerConfig configures the pacing loop.
type ProducerConfig struct {
	// Rate is the initial number of events per second
	Rate int `json:"rate" yaml:"rate"`
}

// StreamConfig identifies the stream to write to and how to provision it.
type StreamConfig struct {
	// Controller is a comma separated list of broker URIs (tcp://host:port)
	Controller string `json:"controller" yaml:"controller"`

	// Scope is the namespace of the stream
	Scope string `json:"scope" yaml:"scope"`

	// Name is the stream name within the scope
	Name string `json:"name" yaml:"name"`

	// Partitions is the partition count used when the stream is created
	Partitions int `json:"partitions" yaml:"partitions"`

	// ReplicationFactor is used when the stream is created
	ReplicationFactor int `json:"replicationFactor" yaml:"replicationFactor"`

	// SkipCreate disables stream provisioning at startup
	SkipCreate bool `json:"skipCreate,omitempty" yaml:"skipCreate,omitempty"`
}

// SinkConfig selects and tunes the event sink.
type SinkConfig struct {
	// Type is one of "kafka", "stdout", "discard"
	Type string `json:"type" yaml:"type"`

	// RequiredAcks is one of "none", "one", "all"
	RequiredAcks string `json:"requiredAcks,omitempty" yaml:"requiredAcks,omitempty"`

	// Compression is one of "", "gzip", "snappy", "lz4", "zstd"
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`

	// WriteTimeout bounds a single synchronous write
	WriteTimeout Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Port      int    `json:"port" yaml:"port"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zerolog level name
	Level string `json:"level" yaml:"level"`

	// Format is one of "auto", "console", "json"
	Format string `json:"format" yaml:"format"`
}

// ControlConfig configures the stdin control surface.
type ControlConfig struct {
	// Stdin enables reading rate changes from standard input
	Stdin bool `json:"stdin" yaml:"stdin"`

	// IdleInterval is how long the reader waits after unrecognised input
	IdleInterval Duration `json:"idleInterval,omitempty" yaml:"idleInterval,omitempty"`
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Producer: ProducerConfig{Rate: DefaultRate},
		Stream: StreamConfig{
			Controller:        DefaultController,
			Scope:             DefaultScope,
			Name:              DefaultStreamName,
			Partitions:        DefaultPartitions,
			ReplicationFactor: DefaultReplicationFactor,
		},
		Sink: SinkConfig{
			Type:         SinkKafka,
			RequiredAcks: "one",
			WriteTimeout: Duration(DefaultWriteTimeout),
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Port:      DefaultMetricsPort,
			Path:      DefaultMetricsPath,
			Namespace: DefaultMetricsNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Control: ControlConfig{
			Stdin:        true,
			IdleInterval: Duration(DefaultIdleInterval),
		},
	}
}

// Topic returns the topic name for the stream, "<scope>.<name>".
func (s StreamConfig) Topic() string {
	return s.Scope + "." + s.Name
}

// Brokers parses Controller into a list of host:port addresses.
func (s StreamConfig) Brokers() ([]string, error) {
	var brokers []string
	for _, part := range strings.Split(s.Controller, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		addr := part
		if strings.Contains(part, "://") {
			u, err := url.Parse(part)
			if err != nil {
				return nil, fmt.Errorf("invalid controller URI %q: %w", part, err)
			}
			if u.Scheme != "tcp" {
				return nil, fmt.Errorf("unsupported scheme %q in controller URI %q", u.Scheme, part)
			}
			addr = u.Host
		}

		if addr == "" || !strings.Contains(addr, ":") {
			return nil, fmt.Errorf("controller address %q must be host:port", part)
		}
		brokers = append(brokers, addr)
	}

	if len(brokers) == 0 {
		return nil, fmt.Errorf("no controller address configured")
	}
	return brokers, nil
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// GetDuration returns the duration or a default if zero.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
