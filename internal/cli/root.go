package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "streamgen",
		Short:   "A synthetic event load generator",
		Version: version,
		Long: `streamgen emits a steady number of events per second into a stream
and lets you change that number while it runs. The current rate is
exported as a Prometheus gauge.

  streamgen produce --uri tcp://localhost:9092 --scope demo --name events --rate 50

Type a number on stdin to change the rate, or "exit" to stop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand is provided, print help
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML or JSON)")
	root.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: auto, console, json")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(newProduceCmd())
	root.AddCommand(newProvisionCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command with os.Args and reports errors on stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
