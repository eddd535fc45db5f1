package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/streamgen/internal/config"
	"github.com/wesleyorama2/streamgen/internal/sink"
)

func newProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the stream and exit",
		Long: `Create the stream <scope>.<name> on the controller with the configured
partition count and replication factor. An existing stream is left as is.`,
		Args: cobra.NoArgs,
		RunE: runProvision,
	}

	addStreamFlags(cmd.Flags())
	return cmd
}

func runProvision(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Provisioning always talks to the broker, whatever sink is configured.
	cfg.Sink.Type = config.SinkKafka

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := sink.NewProvisioner(cfg, logger)
	if err != nil {
		return err
	}
	if err := prov.EnsureTopic(ctx); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	partitions, err := prov.Partitions(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stream %s ready with %d partition(s)\n", prov.Topic(), partitions)
	return nil
}
