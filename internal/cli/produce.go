package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/streamgen/internal/config"
	"github.com/wesleyorama2/streamgen/internal/control"
	"github.com/wesleyorama2/streamgen/internal/metrics"
	"github.com/wesleyorama2/streamgen/internal/output"
	"github.com/wesleyorama2/streamgen/internal/producer"
	"github.com/wesleyorama2/streamgen/internal/sink"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

func newProduceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Emit events at a fixed rate until stopped",
		Long: `Emit a fixed number of events every second into a stream.

The stream is created first unless --no-create is given. While running,
each line on stdin is a command:

  <n>                 set the rate to n events per second
  exit | quit | stop  stop producing
  {"rate": n}         JSON form of a rate change
  {"command":"exit"}  JSON form of exit

SIGINT and SIGTERM also stop the producer. The exit status is non-zero if
a write to the stream failed.`,
		Example: `  streamgen produce --rate 100
  streamgen produce -u tcp://kafka:9092 -s loadtest -n events -p 9100
  streamgen produce --sink stdout --rate 5 --no-metrics`,
		Args: cobra.NoArgs,
		RunE: runProduce,
	}

	fs := cmd.Flags()
	addStreamFlags(fs)
	fs.IntP("rate", "r", config.DefaultRate, "Initial events per second")
	fs.IntP("port", "p", config.DefaultMetricsPort, "Metrics port")
	fs.String("sink", config.SinkKafka, "Sink type: kafka, stdout, discard")
	fs.String("acks", "", "Required acks: none, one, all")
	fs.String("compression", "", "Compression codec: gzip, snappy, lz4, zstd")
	fs.Bool("no-create", false, "Do not create the stream before producing")
	fs.Bool("no-metrics", false, "Disable the metrics endpoint")
	fs.Bool("no-stdin", false, "Ignore standard input")
	fs.BoolP("quiet", "q", false, "Only print rate changes and the final status")

	return cmd
}

func runProduce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	console := output.NewConsole(output.ConsoleConfig{
		Writer:  cmd.OutOrStdout(),
		Quiet:   quiet,
		NoColor: noColor,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prov *sink.Provisioner
	if cfg.Sink.Type == config.SinkKafka {
		prov, err = sink.NewProvisioner(cfg, logger)
		if err != nil {
			return err
		}
		if !cfg.Stream.SkipCreate {
			if err := prov.EnsureTopic(ctx); err != nil {
				return fmt.Errorf("create stream: %w", err)
			}
		}
	}

	sk, err := sink.New(cfg, sink.Options{Stdout: cmd.OutOrStdout(), Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := sk.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing sink")
		}
	}()

	engine := metrics.NewEngine()

	console.PrintBanner(bannerFor(cfg))

	p, err := producer.New(sk, cfg.Producer.Rate,
		producer.WithLogger(logger),
		producer.WithRecorder(engine),
		producer.WithRateListener(console.PrintRate),
	)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		exp, err := newExporter(cfg, p, engine, prov, logger)
		if err != nil {
			return err
		}
		if err := exp.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := exp.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("stopping metrics server")
			}
		}()
	}

	started := time.Now()
	if err := p.Start(ctx); err != nil {
		return err
	}

	controlDone := make(chan error, 1)
	if cfg.Control.Stdin {
		reader := control.NewReader(cmd.InOrStdin(), p,
			control.WithIdleInterval(cfg.Control.IdleInterval.GetDuration(control.DefaultIdleInterval)),
			control.WithLogger(logger),
			control.WithRejectHandler(func(line string, err error) {
				console.Warn("ignoring %q: %v", line, err)
			}),
		)
		go func() { controlDone <- reader.Run(ctx) }()
	}

	waitForStop(ctx, p, controlDone, logger)

	_ = p.Stop()
	runErr := p.Err()

	console.PrintSummary(output.Summary{
		Duration: time.Since(started),
		Stats:    p.Stats(),
		Metrics:  engine.Snapshot(),
		Err:      runErr,
	})

	return runErr
}

// waitForStop blocks until a stop is requested by signal, control input or
// a failure of the producer itself.
func waitForStop(ctx context.Context, p *producer.Producer, controlDone <-chan error, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("signal received, stopping")
			return
		case <-p.Done():
			return
		case err := <-controlDone:
			switch {
			case errors.Is(err, control.ErrExit):
				return
			case err == nil:
				// End of input; keep producing until a signal arrives.
				logger.Info().Msg("standard input closed, stop with SIGINT or SIGTERM")
				controlDone = nil
			case errors.Is(err, context.Canceled):
			default:
				logger.Warn().Err(err).Msg("reading control input")
				controlDone = nil
			}
		}
	}
}

func newExporter(cfg *config.Config, p *producer.Producer, engine *metrics.Engine, prov *sink.Provisioner, logger zerolog.Logger) (*metrics.Exporter, error) {
	opts := []metrics.ExporterOption{metrics.WithExporterLogger(logger)}
	if prov != nil {
		opts = append(opts, metrics.WithPartitionSource(prov))
	}

	return metrics.NewExporter(metrics.ExporterConfig{
		Addr:      fmt.Sprintf(":%d", cfg.Metrics.Port),
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
	}, p, engine, opts...)
}

func bannerFor(cfg *config.Config) output.Banner {
	b := output.Banner{
		Version: version,
		Sink:    cfg.Sink.Type,
		Rate:    cfg.Producer.Rate,
	}
	if cfg.Sink.Type == config.SinkKafka {
		b.Topic = cfg.Stream.Topic()
		if brokers, err := cfg.Stream.Brokers(); err == nil {
			b.Brokers = strings.Join(brokers, ",")
		}
	}
	if cfg.Metrics.Enabled {
		b.MetricsURL = fmt.Sprintf("http://localhost:%d%s", cfg.Metrics.Port, cfg.Metrics.Path)
	}
	return b
}
