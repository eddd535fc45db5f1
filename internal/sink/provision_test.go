package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/streamgen/internal/config"
)

type fakeConn struct {
	controller kafka.Broker
	createErr  error
	created    []kafka.TopicConfig
	partitions []kafka.Partition
	closed     bool
}

func (c *fakeConn) Controller() (kafka.Broker, error) { return c.controller, nil }

func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	c.created = append(c.created, topics...)
	return c.createErr
}

func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	return c.partitions, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestProvisioner(t *testing.T, controller string, conns map[string]*fakeConn) *Provisioner {
	t.Helper()

	cfg := config.Default()
	cfg.Stream.Controller = controller
	cfg.Stream.Partitions = 3

	p, err := NewProvisioner(cfg, zerolog.Nop())
	require.NoError(t, err)

	p.dial = func(_ context.Context, addr string) (adminConn, error) {
		if c, ok := conns[addr]; ok {
			return c, nil
		}
		return nil, errors.New("connection refused")
	}
	return p
}

func TestProvisioner_EnsureTopic(t *testing.T) {
	bootstrap := &fakeConn{controller: kafka.Broker{Host: "ctrl", Port: 9092}}
	ctrl := &fakeConn{}

	p := newTestProvisioner(t, "tcp://down:9092,tcp://up:9092", map[string]*fakeConn{
		"up:9092":   bootstrap,
		"ctrl:9092": ctrl,
	})

	require.NoError(t, p.EnsureTopic(context.Background()))

	require.Len(t, ctrl.created, 1)
	assert.Equal(t, kafka.TopicConfig{
		Topic:             "flinkScope.flinkStream",
		NumPartitions:     3,
		ReplicationFactor: 1,
	}, ctrl.created[0])
	assert.True(t, bootstrap.closed)
	assert.True(t, ctrl.closed)
}

func TestProvisioner_EnsureTopic_AlreadyExists(t *testing.T) {
	ctrl := &fakeConn{createErr: kafka.TopicAlreadyExists}
	p := newTestProvisioner(t, "tcp://b:9092", map[string]*fakeConn{
		"b:9092":    {controller: kafka.Broker{Host: "c", Port: 1}},
		"c:1":    ctrl,
	})

	assert.NoError(t, p.EnsureTopic(context.Background()))
}

func TestProvisioner_EnsureTopic_Failure(t *testing.T) {
	ctrl := &fakeConn{createErr: kafka.InvalidReplicationFactor}
	p := newTestProvisioner(t, "tcp://b:9092", map[string]*fakeConn{
		"b:9092": {controller: kafka.Broker{Host: "c", Port: 1}},
		"c:1":    ctrl,
	})

	err := p.EnsureTopic(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.InvalidReplicationFactor)
}

func TestProvisioner_NoReachableBroker(t *testing.T) {
	p := newTestProvisioner(t, "tcp://a:1,tcp://b:2", nil)

	err := p.EnsureTopic(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reachable broker")

	_, err = p.Partitions(context.Background())
	assert.Error(t, err)
}

func TestProvisioner_Partitions(t *testing.T) {
	p := newTestProvisioner(t, "tcp://b:9092", map[string]*fakeConn{
		"b:9092": {partitions: make([]kafka.Partition, 4)},
	})

	n, err := p.Partitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
