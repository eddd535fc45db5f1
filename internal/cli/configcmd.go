package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/streamgen/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration files",
	}
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigDefaultsCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.LoadConfig(args[0])
			if err != nil {
				var verrs *config.ValidationErrors
				if errors.As(err, &verrs) {
					out := cmd.ErrOrStderr()
					fmt.Fprintf(out, "%s is invalid:\n", args[0])
					for _, e := range verrs.Errors {
						fmt.Fprintf(out, "  - %s\n", e.Error())
					}
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}
}

func newConfigDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(config.Default()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
