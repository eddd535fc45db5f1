package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/wesleyorama2/streamgen/internal/config"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes each event as one message to the stream's topic.
//
// Writes are synchronous: the writer is configured with a batch size of one
// so WriteMessages returns as soon as the broker has acknowledged the event
// according to RequiredAcks.
type Kafka struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafka creates a Kafka sink for cfg.Stream.
func NewKafka(cfg *config.Config, logger zerolog.Logger) (*Kafka, error) {
	brokers, err := cfg.Stream.Brokers()
	if err != nil {
		return nil, err
	}

	acks, err := parseRequiredAcks(cfg.Sink.RequiredAcks)
	if err != nil {
		return nil, err
	}

	codec, err := parseCompression(cfg.Sink.Compression)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Sink.WriteTimeout.GetDuration(config.DefaultWriteTimeout)
	logger = logger.With().Str("component", "kafka-sink").Str("topic", cfg.Stream.Topic()).Logger()

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Stream.Topic(),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: acks,
		Compression:  codec,
		BatchSize:    1,
		WriteTimeout: timeout,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn().Msgf(msg, args...)
		}),
	}

	logger.Debug().Strs("brokers", brokers).Msg("kafka sink created")
	return newKafka(w, cfg.Stream.Topic(), timeout, logger), nil
}

func newKafka(w messageWriter, topic string, timeout time.Duration, logger zerolog.Logger) *Kafka {
	return &Kafka{writer: w, topic: topic, timeout: timeout, logger: logger}
}

// Topic returns the topic events are written to.
func (k *Kafka) Topic() string {
	return k.topic
}

// WriteEvent writes payload as both key and value of a message.
func (k *Kafka) WriteEvent(ctx context.Context, payload string) error {
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	b := []byte(payload)
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: b, Value: b}); err != nil {
		return fmt.Errorf("write to %s: %w", k.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	k.logger.Debug().Msg("closing kafka sink")
	return k.writer.Close()
}

func parseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	switch s {
	case "none":
		return kafka.RequireNone, nil
	case "", "one":
		return kafka.RequireOne, nil
	case "all":
		return kafka.RequireAll, nil
	default:
		return 0, fmt.Errorf("unknown acks mode: %s", s)
	}
}

func parseCompression(s string) (kafka.Compression, error) {
	switch s {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression codec: %s", s)
	}
}
