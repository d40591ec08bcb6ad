package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage aion configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  aion config init -o aion.yaml
  aion config validate -f aion.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  aion --config %s list\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "aion.yaml", "output config file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Policy: max %.2f%% per trade, min RR %.2f\n", cfg.Policy.MaxRiskPerTradePct, cfg.Policy.MinRR)
			fmt.Fprintf(out, "  Persistence: %t (%s)\n", cfg.Persistence.Enabled, cfg.Persistence.BaseDir)
			fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.Type)
			for _, w := range cfg.Policy.Warnings() {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("file")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
