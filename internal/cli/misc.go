package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/phase"
)

const version = "0.3.0"

func newStrategiesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List the strategy tiers and which are allowed in this phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := contracts.StrategyCatalog()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), cat)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tNAME\tHORIZON\tTIMEFRAMES\tMIN RR\tPHASE")
			for _, s := range cat {
				allowed := "-"
				if s.PhaseAllowed {
					allowed = "allowed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%s\n",
					s.Tier, s.Name, s.Horizon, strings.Join(s.Timeframes, ","), s.DefaultMinRR, allowed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aion version %s (%s)\n", version, phase.Name)
		},
	}
}
