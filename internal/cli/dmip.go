package cli

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/config"
	"github.com/rustyeddy/aion/dmip"
)

func newRunner(cfg *config.Config) *dmip.Runner {
	opts := []dmip.Option{dmip.WithLogger(log.Logger)}
	if cfg.DMIP.WeightsPath != "" {
		opts = append(opts, dmip.WithWeights(dmip.FileWeightSource{Path: cfg.DMIP.WeightsPath}))
	}
	if cfg.DMIP.CaptureDir != "" {
		opts = append(opts,
			dmip.WithCaptureDir(cfg.DMIP.CaptureDir),
			dmip.WithSummary(dmip.CaptureSummary{Dir: cfg.DMIP.CaptureDir}),
		)
	}
	return dmip.NewRunner(opts...)
}

func readAdvice(cmd *cobra.Command, path string) (map[string]dmip.AdvisoryPayload, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := readDocument(cmd.InOrStdin(), path)
	if err != nil {
		return nil, err
	}
	return dmip.DecodeConsultation(raw)
}

func newCheckpointCmd(rc *RootConfig) *cobra.Command {
	var (
		adviceFile string
		marketFile string
		pairs      []string
	)

	cmd := &cobra.Command{
		Use:   "checkpoint <pre_market|london|mid_london|new_york|asia|eod>",
		Short: "Build the daily bias sheet for a session checkpoint",
		Long: `Checkpoint combines the market snapshot with the two advisory biases per
pair into a bias sheet. Weights only refine agreed confidences by one step;
a disagreement is always AVOID/LOW.

Example:
  aion checkpoint london --advice advice.yaml --market market.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			advice, err := readAdvice(cmd, adviceFile)
			if err != nil {
				return err
			}

			snap := &dmip.MarketSnapshot{}
			if marketFile != "" {
				raw, err := readDocument(cmd.InOrStdin(), marketFile)
				if err != nil {
					return err
				}
				if err := mapstructure.WeakDecode(raw, snap); err != nil {
					return fmt.Errorf("decode market snapshot: %w", err)
				}
			}
			if len(pairs) > 0 {
				snap.Pairs = pairs
			} else if len(snap.Pairs) == 0 {
				snap.Pairs = rc.Config.DMIP.Pairs
			}

			res, err := newRunner(rc.Config).RunCheckpoint(context.Background(), args[0], snap, advice)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&adviceFile, "advice", "a", "", "advisory payloads by pair (YAML or JSON)")
	cmd.Flags().StringVarP(&marketFile, "market", "m", "", "market snapshot (YAML or JSON)")
	cmd.Flags().StringSliceVar(&pairs, "pairs", nil, "pairs to evaluate (overrides snapshot and config)")
	return cmd
}

func newSynthesizeCmd(rc *RootConfig) *cobra.Command {
	var (
		adviceFile string
		pairs      []string
	)

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Run weighted synthesis over advisory payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			advice, err := readAdvice(cmd, adviceFile)
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				pairs = rc.Config.DMIP.Pairs
			}
			res := newRunner(rc.Config).Synthesize(context.Background(), pairs, advice)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&adviceFile, "advice", "a", "-", "advisory payloads by pair, - for stdin")
	cmd.Flags().StringSliceVar(&pairs, "pairs", nil, "pairs to evaluate (defaults to config)")
	return cmd
}
