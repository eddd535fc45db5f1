package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wesleyorama2/streamgen/internal/config"
	"github.com/wesleyorama2/streamgen/internal/logging"
)

// addStreamFlags registers the flags that identify the target stream.
func addStreamFlags(fs *pflag.FlagSet) {
	fs.StringP("uri", "u", config.DefaultController, "Controller URI, comma separated for several brokers")
	fs.StringP("scope", "s", config.DefaultScope, "Scope name")
	fs.StringP("name", "n", config.DefaultStreamName, "Stream name")
	fs.Int("partitions", config.DefaultPartitions, "Partition count used when creating the stream")
	fs.Int("replication-factor", config.DefaultReplicationFactor, "Replication factor used when creating the stream")
}

// loadConfig reads the --config file (or the defaults), applies every flag
// the user set explicitly and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyFlags(cmd.Flags(), cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}

	setString("uri", &cfg.Stream.Controller)
	setString("scope", &cfg.Stream.Scope)
	setString("name", &cfg.Stream.Name)
	setInt("partitions", &cfg.Stream.Partitions)
	setInt("replication-factor", &cfg.Stream.ReplicationFactor)
	setBool("no-create", &cfg.Stream.SkipCreate)

	setInt("rate", &cfg.Producer.Rate)

	setString("sink", &cfg.Sink.Type)
	setString("acks", &cfg.Sink.RequiredAcks)
	setString("compression", &cfg.Sink.Compression)

	setInt("port", &cfg.Metrics.Port)
	if fs.Changed("no-metrics") {
		disabled, _ := fs.GetBool("no-metrics")
		cfg.Metrics.Enabled = !disabled
	}

	if fs.Changed("no-stdin") {
		disabled, _ := fs.GetBool("no-stdin")
		cfg.Control.Stdin = !disabled
	}

	setString("log-level", &cfg.Log.Level)
	setString("log-format", &cfg.Log.Format)
}

// newLogger builds the logger for cmd, writing to its stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	noColor, _ := cmd.Flags().GetBool("no-color")

	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Writer:  cmd.ErrOrStderr(),
		NoColor: noColor,
	})
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("configure logging: %w", err)
	}
	return logger, nil
}
