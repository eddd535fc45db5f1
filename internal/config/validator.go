package config

import (
	"fmt"
	"regexp"
	"strings"
)

// streamNamePattern matches scope and stream names that are valid topic
// name components.
var streamNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxTopicLength is the Kafka limit on topic names.
const maxTopicLength = 249

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the whole configuration.
//
// Returns nil if valid, or a *ValidationErrors containing every problem found.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Producer.Rate < 0 {
		errs.Add("producer.rate", "rate must be >= 0")
	}

	validateStream(&c.Stream, c.Sink.Type == SinkKafka, errs)
	validateSink(&c.Sink, errs)
	validateMetrics(&c.Metrics, errs)

	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		errs.Add("log.format", fmt.Sprintf("unknown format: %s", c.Log.Format))
	}

	if c.Control.IdleInterval < 0 {
		errs.Add("control.idleInterval", "idle interval must be >= 0")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateStream(s *StreamConfig, needsBroker bool, errs *ValidationErrors) {
	if !streamNamePattern.MatchString(s.Scope) {
		errs.Add("stream.scope", fmt.Sprintf("invalid scope name %q", s.Scope))
	}
	if !streamNamePattern.MatchString(s.Name) {
		errs.Add("stream.name", fmt.Sprintf("invalid stream name %q", s.Name))
	}
	if len(s.Topic()) > maxTopicLength {
		errs.Add("stream", fmt.Sprintf("scope and name exceed %d characters", maxTopicLength))
	}
	if s.Partitions < 1 {
		errs.Add("stream.partitions", "partitions must be >= 1")
	}
	if s.ReplicationFactor < 1 {
		errs.Add("stream.replicationFactor", "replication factor must be >= 1")
	}

	if needsBroker {
		if _, err := s.Brokers(); err != nil {
			errs.Add("stream.controller", err.Error())
		}
	}
}

func validateSink(s *SinkConfig, errs *ValidationErrors) {
	switch s.Type {
	case SinkKafka, SinkStdout, SinkDiscard:
	default:
		errs.Add("sink.type", fmt.Sprintf("unknown sink type: %s", s.Type))
	}

	switch s.RequiredAcks {
	case "", "none", "one", "all":
	default:
		errs.Add("sink.requiredAcks", fmt.Sprintf("unknown acks mode: %s", s.RequiredAcks))
	}

	switch s.Compression {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs.Add("sink.compression", fmt.Sprintf("unknown compression codec: %s", s.Compression))
	}

	if s.WriteTimeout < 0 {
		errs.Add("sink.writeTimeout", "write timeout must be >= 0")
	}
}

func validateMetrics(m *MetricsConfig, errs *ValidationErrors) {
	if !m.Enabled {
		return
	}
	if m.Port < 0 || m.Port > 65535 {
		errs.Add("metrics.port", fmt.Sprintf("port out of range: %d", m.Port))
	}
	if m.Path != "" && !strings.HasPrefix(m.Path, "/") {
		errs.Add("metrics.path", "path must start with '/'")
	}
}
