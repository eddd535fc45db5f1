package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2, cfg.Producer.Rate)
	assert.Equal(t, "flinkScope", cfg.Stream.Scope)
	assert.Equal(t, "flinkStream", cfg.Stream.Name)
	assert.Equal(t, "flinkScope.flinkStream", cfg.Stream.Topic())
	assert.Equal(t, 5001, cfg.Metrics.Port)
	assert.Equal(t, SinkKafka, cfg.Sink.Type)
	assert.Equal(t, 100*time.Millisecond, cfg.Control.IdleInterval.GetDuration(0))
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "streamgen.yaml", `
producer:
  rate: 250
stream:
  controller: tcp://kafka-0:9092, tcp://kafka-1:9092
  scope: loadtest
  name: clicks
  partitions: 6
sink:
  requiredAcks: all
  compression: snappy
  writeTimeout: 2s
metrics:
  port: 9093
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Producer.Rate)
	assert.Equal(t, "loadtest.clicks", cfg.Stream.Topic())
	assert.Equal(t, 6, cfg.Stream.Partitions)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultReplicationFactor, cfg.Stream.ReplicationFactor)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.True(t, cfg.Metrics.Enabled)

	assert.Equal(t, "all", cfg.Sink.RequiredAcks)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Sink.WriteTimeout))
	assert.Equal(t, 9093, cfg.Metrics.Port)
	assert.Equal(t, "json", cfg.Log.Format)

	brokers, err := cfg.Stream.Brokers()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-0:9092", "kafka-1:9092"}, brokers)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "streamgen.json", `{
		"producer": {"rate": 0},
		"sink": {"type": "stdout"},
		"metrics": {"enabled": false},
		"control": {"idleInterval": "250ms"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Producer.Rate)
	assert.Equal(t, SinkStdout, cfg.Sink.Type)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Control.IdleInterval))
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoadConfig_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "producer: [",
			wantErr: "failed to parse config",
		},
		{
			name:    "negative rate",
			content: "producer:\n  rate: -1\n",
			wantErr: "/producer/rate",
		},
		{
			name:    "unknown section",
			content: "pravega:\n  uri: tcp://x:1\n",
			wantErr: "does not match schema",
		},
		{
			name:    "unknown sink",
			content: "sink:\n  type: pravega\n",
			wantErr: "/sink/type",
		},
		{
			name:    "bad duration",
			content: "sink:\n  writeTimeout: soon\n",
			wantErr: "failed to decode config",
		},
		{
			name:    "bad scope",
			content: "stream:\n  scope: \"a b\"\n",
			wantErr: "stream.scope",
		},
		{
			name:    "bad controller scheme",
			content: "stream:\n  controller: http://localhost:9092\n",
			wantErr: "stream.controller",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "bad.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Producer.Rate = -5
	cfg.Stream.Partitions = 0
	cfg.Metrics.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Errors, 3)
	assert.Contains(t, err.Error(), "3 validation errors")
}

func TestValidate_ControllerOnlyCheckedForKafka(t *testing.T) {
	cfg := Default()
	cfg.Stream.Controller = ""
	assert.Error(t, cfg.Validate())

	cfg.Sink.Type = SinkDiscard
	assert.NoError(t, cfg.Validate())
}

func TestStreamConfig_Brokers(t *testing.T) {
	tests := []struct {
		controller string
		want       []string
		wantErr    bool
	}{
		{controller: "tcp://localhost:9092", want: []string{"localhost:9092"}},
		{controller: "localhost:9092,other:9093", want: []string{"localhost:9092", "other:9093"}},
		{controller: "tcp://localhost", wantErr: true},
		{controller: "udp://localhost:9092", wantErr: true},
		{controller: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.controller, func(t *testing.T) {
			got, err := StreamConfig{Controller: tt.controller}.Brokers()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Duration(0), d)
	assert.Equal(t, 5*time.Second, d.GetDuration(5*time.Second))
}
