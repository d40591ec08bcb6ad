package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/paper"
)

type submitDocument struct {
	Proposal     contracts.TradeProposal      `json:"proposal"`
	SessionStats *contracts.SessionStats      `json:"session_stats,omitempty"`
	AccountStats *contracts.AccountStats      `json:"account_stats,omitempty"`
	Policy       *contracts.TradingRiskPolicy `json:"policy,omitempty"`
	Metadata     map[string]any               `json:"metadata,omitempty"`
}

// decodeSubmit accepts either a full request document or a bare proposal.
func decodeSubmit(raw map[string]any) (paper.SubmitRequest, error) {
	var doc submitDocument
	if _, ok := raw["proposal"]; ok {
		if err := convert(raw, &doc); err != nil {
			return paper.SubmitRequest{}, fmt.Errorf("decode request: %w", err)
		}
	} else if err := convert(raw, &doc.Proposal); err != nil {
		return paper.SubmitRequest{}, fmt.Errorf("decode proposal: %w", err)
	}

	md, err := contracts.DecodeRequestMetadata(doc.Metadata)
	if err != nil {
		return paper.SubmitRequest{}, err
	}
	return paper.SubmitRequest{
		Proposal:     doc.Proposal,
		SessionStats: doc.SessionStats,
		AccountStats: doc.AccountStats,
		Policy:       doc.Policy,
		Metadata:     md,
	}, nil
}

func newSubmitCmd(rc *RootConfig) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a paper trade through the entry gates",
		Long: `Submit reads a request document (YAML or JSON) with a proposal and optional
session_stats, account_stats, policy and metadata, or a bare proposal.

Example:
  aion submit -f proposal.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDocument(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			req, err := decodeSubmit(raw)
			if err != nil {
				return err
			}
			out, err := mutate(rc, func(rt *paper.Runtime) (any, string, bool) {
				res := rt.Submit(req)
				return res, res.Reason, res.OK
			})
			if out != nil {
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "request document, - for stdin")
	return cmd
}

func newManageCmd(rc *RootConfig) *cobra.Command {
	var (
		stopLoss float64
		fraction float64
		price    float64
		note     string
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "manage <trade-id> <action>",
		Short: "Manage an open paper trade (move_stop, take_partial, add_note)",
		Example: `  aion manage 01J... move_stop --stop-loss 1.0975 --reason "structure break"
  aion manage 01J... take_partial --fraction 0.5 --price 1.1050
  aion manage 01J... add_note --note "news in 30m"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("stop-loss") {
				payload["stop_loss"] = stopLoss
			}
			if flags.Changed("fraction") {
				payload["fraction"] = fraction
			}
			if flags.Changed("price") {
				payload["price"] = price
			}
			if flags.Changed("note") {
				payload["note"] = note
			}
			if flags.Changed("reason") {
				payload["reason"] = reason
			}

			out, err := mutate(rc, func(rt *paper.Runtime) (any, string, bool) {
				res := rt.Manage(args[0], args[1], payload)
				return res, res.Reason, res.OK
			})
			if out != nil {
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&stopLoss, "stop-loss", 0, "move_stop: new stop loss")
	cmd.Flags().Float64Var(&fraction, "fraction", 0, "take_partial: fraction in (0, 1]")
	cmd.Flags().Float64Var(&price, "price", 0, "take_partial: fill price")
	cmd.Flags().StringVar(&note, "note", "", "add_note: text")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the action")
	return cmd
}

func newCloseCmd(rc *RootConfig) *cobra.Command {
	var (
		price   float64
		reason  string
		outcome string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "close <trade-id>",
		Short: "Close an open paper trade",
		Long: `Close an open paper trade at --price, or from a YAML/JSON document given
with --file ({close_price, close_reason, outcome}). Flags override the
document.`,
		Example: `  aion close 01J... --price 1.1110 --reason tp_hit
  echo '{close_price: 1.1110, close_reason: tp_hit}' | aion close 01J... -f -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req paper.CloseRequest
			switch {
			case file != "":
				raw, err := readDocument(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				if req, err = paper.DecodeCloseRequest(raw); err != nil {
					return err
				}
			case cmd.Flags().Changed("price"):
			default:
				return errors.New("either --price or --file is required")
			}
			if cmd.Flags().Changed("price") {
				req.ClosePrice = price
			}
			if cmd.Flags().Changed("reason") {
				req.CloseReason = reason
			}
			if cmd.Flags().Changed("outcome") {
				req.Outcome = outcome
			}

			out, err := mutate(rc, func(rt *paper.Runtime) (any, string, bool) {
				res := rt.Close(args[0], req)
				return res, res.Reason, res.OK
			})
			if out != nil {
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "close price")
	cmd.Flags().StringVar(&reason, "reason", "", "close reason (required)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "your own outcome label, kept next to the computed one")
	cmd.Flags().StringVarP(&file, "file", "f", "", "close document, - for stdin")
	return cmd
}

func newGetCmd(rc *RootConfig) *cobra.Command {
	var withEvents bool

	cmd := &cobra.Command{
		Use:   "get <trade-id>",
		Short: "Show one paper trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeFn, err := openRuntime(rc.Config)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := rt.Get(args[0])
			if errors.Is(err, paper.ErrTradeNotFound) {
				return fmt.Errorf("trade %s not found", args[0])
			}
			if err != nil {
				return err
			}
			if !withEvents {
				return printJSON(cmd.OutOrStdout(), t)
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Trade  paper.Trade   `json:"trade"`
				Events []paper.Event `json:"events"`
			}{t, rt.Events(t.TradeID)})
		},
	}
	cmd.Flags().BoolVar(&withEvents, "events", false, "include the trade's event stream")
	return cmd
}

func newListCmd(rc *RootConfig) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List paper trades, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeFn, err := openRuntime(rc.Config)
			if err != nil {
				return err
			}
			defer closeFn()

			trades, err := rt.List(status)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), trades)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter: open|closed")
	return cmd
}

func newSnapshotCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Rewrite the trades snapshot from the persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rc.Config.Persistence.Enabled {
				return errors.New("persistence is disabled")
			}
			rt, closeFn, err := openRuntime(rc.Config)
			if err != nil {
				return err
			}
			defer closeFn()

			res := rt.Snapshot()
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("snapshot failed: %s", res.Error)
			}
			return nil
		},
	}
}

func newRestoreCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Load the persisted state and report what was restored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := paper.New(paper.WithLogger(log.Logger), paper.WithLimitsOptions(rc.Config.Phase.Options()))
			rt.ConfigurePersistence(rc.Config.Persistence)
			res := rt.Restore(true)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("restore failed: %s", res.Error)
			}
			return nil
		},
	}
}

func newResetCmd(rc *RootConfig) *cobra.Command {
	var files bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the paper runtime",
		Long: `Reset clears every paper trade and writes an empty snapshot. The event
journal is append-only and is kept unless --files removes the persistence
files altogether.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := paper.New(paper.WithLogger(log.Logger))
			rt.ConfigurePersistence(rc.Config.Persistence)
			if restored := rt.Restore(true); !restored.OK {
				log.Warn().Str("error", restored.Error).Msg("resetting without a readable snapshot")
			}

			res := rt.Reset(files)
			if !files && rc.Config.Persistence.Enabled {
				if snap := rt.Snapshot(); !snap.OK {
					res.OK = false
					res.Errors = append(res.Errors, snap.Error)
				}
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("reset incomplete: %v", res.Errors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&files, "files", false, "also remove the persistence files")
	return cmd
}
