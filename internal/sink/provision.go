package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/wesleyorama2/streamgen/internal/config"
)

// adminConn is the part of *kafka.Conn used for provisioning.
type adminConn interface {
	Controller() (kafka.Broker, error)
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

type dialFunc func(ctx context.Context, addr string) (adminConn, error)

func dialKafka(ctx context.Context, addr string) (adminConn, error) {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Provisioner creates the stream's topic and reports its partition count.
type Provisioner struct {
	brokers           []string
	topic             string
	partitions        int
	replicationFactor int
	dial              dialFunc
	logger            zerolog.Logger
}

// NewProvisioner creates a provisioner for cfg.Stream.
func NewProvisioner(cfg *config.Config, logger zerolog.Logger) (*Provisioner, error) {
	brokers, err := cfg.Stream.Brokers()
	if err != nil {
		return nil, err
	}

	return &Provisioner{
		brokers:           brokers,
		topic:             cfg.Stream.Topic(),
		partitions:        cfg.Stream.Partitions,
		replicationFactor: cfg.Stream.ReplicationFactor,
		dial:              dialKafka,
		logger:            logger.With().Str("component", "provisioner").Logger(),
	}, nil
}

// Topic returns the managed topic name.
func (p *Provisioner) Topic() string {
	return p.topic
}

// EnsureTopic creates the topic on the cluster controller. A topic that
// already exists is left untouched and is not an error.
func (p *Provisioner) EnsureTopic(ctx context.Context) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrl, err := p.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             p.topic,
		NumPartitions:     p.partitions,
		ReplicationFactor: p.replicationFactor,
	})
	if errors.Is(err, kafka.TopicAlreadyExists) {
		p.logger.Info().Str("topic", p.topic).Msg("topic already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}

	p.logger.Info().
		Str("topic", p.topic).
		Int("partitions", p.partitions).
		Int("replicationFactor", p.replicationFactor).
		Msg("topic ensured")
	return nil
}

// Partitions returns the current number of partitions of the topic.
func (p *Provisioner) Partitions(ctx context.Context) (int, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(p.topic)
	if err != nil {
		return 0, fmt.Errorf("read partitions of %s: %w", p.topic, err)
	}
	return len(parts), nil
}

// connect dials the first reachable broker.
func (p *Provisioner) connect(ctx context.Context) (adminConn, error) {
	var errs []error
	for _, addr := range p.brokers {
		conn, err := p.dial(ctx, addr)
		if err == nil {
			return conn, nil
		}
		p.logger.Debug().Err(err).Str("broker", addr).Msg("broker unreachable")
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no reachable broker: %w", errors.Join(errs...))
}
