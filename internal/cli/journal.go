package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query closed paper trades",
		Long: `Query and display closed paper trades mirrored to the SQLite journal.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - List trades closed today
  day    - List trades closed on a specific day
  stats  - Count closed trades by outcome

Examples:
  aion journal trade <trade-id>
  aion journal today
  aion journal day 2026-03-09`,
	}

	open := func() (*journal.SQLite, error) {
		if rc.Config.Journal.Type != "sqlite" {
			return nil, fmt.Errorf("journal is disabled (journal.type=%q)", rc.Config.Journal.Type)
		}
		return openJournal(rc.Config.Journal.DBPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "today",
		Short: "List trades closed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := time.Local
			return listDay(cmd, open, loc, time.Now().In(loc).Format("2006-01-02"))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDay(cmd, open, time.Local, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count closed trades by outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			counts, err := j.OutcomeCounts()
			if err != nil {
				return fmt.Errorf("query outcomes: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), counts)
		},
	})

	return cmd
}

func listDay(cmd *cobra.Command, open func() (*journal.SQLite, error), loc *time.Location, day string) error {
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := open()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
