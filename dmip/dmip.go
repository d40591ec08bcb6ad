// Package dmip is the decision-intelligence pipeline: a read-only checkpoint
// processor that turns a market snapshot and two optional advisory signals
// into a per-pair bias sheet.
//
// The pipeline never touches risk policy. Weight snapshots, the learning
// summary and the capture journal are all fail-open: problems become notes
// and failure rows in the result, never errors.
package dmip

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/phase"
)

const ResultSchemaVersion = "aion.dmip.checkpoint_result.v1"

var (
	ErrUnknownCheckpoint  = errors.New("unknown checkpoint")
	ErrWeightsUnavailable = errors.New("weights snapshot unavailable")
)

// DefaultPairs is used when the market snapshot names none.
var DefaultPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY"}

// MarketSnapshot is the optional market context for a checkpoint.
type MarketSnapshot struct {
	Pairs           []string `json:"pairs" yaml:"pairs" mapstructure:"pairs"`
	RiskEnvironment string   `json:"risk_environment" yaml:"risk_environment" mapstructure:"risk_environment"`
	AvoidEvents     []string `json:"avoid_events" yaml:"avoid_events" mapstructure:"avoid_events"`
	ProfileID       string   `json:"profile_id" yaml:"profile_id" mapstructure:"profile_id"`
	Environment     string   `json:"environment" yaml:"environment" mapstructure:"environment"`
}

// AdvisoryPayload is one pair's advice from the two advisory sources.
// KeyLevels is loosely typed; non-numeric entries are dropped.
type AdvisoryPayload struct {
	ABias      string `json:"A_bias" yaml:"A_bias" mapstructure:"A_bias"`
	BBias      string `json:"B_bias" yaml:"B_bias" mapstructure:"B_bias"`
	Confidence string `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	KeyLevels  []any  `json:"key_levels" yaml:"key_levels" mapstructure:"key_levels"`
}

// biases returns the parsed A and B biases. A value outside the closed set
// counts as absent.
func (a AdvisoryPayload) biases() (ab, bb contracts.Bias, aok, bok bool) {
	ab, aok = contracts.ParseBias(a.ABias)
	bb, bok = contracts.ParseBias(a.BBias)
	return
}

// DecodeConsultation turns a loosely typed {pair: {A_bias, B_bias, ...}}
// mapping into advisory payloads keyed by normalised pair.
func DecodeConsultation(raw map[string]any) (map[string]AdvisoryPayload, error) {
	out := make(map[string]AdvisoryPayload, len(raw))
	for pair, v := range raw {
		var ap AdvisoryPayload
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &ap,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("decode advisory payload for %s: %w", pair, err)
		}
		out[phase.NormalizePair(pair)] = ap
	}
	return out, nil
}

// ParseCheckpoint validates a checkpoint key.
func ParseCheckpoint(s string) (contracts.Session, error) {
	cp, ok := contracts.ParseSession(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCheckpoint, strings.TrimSpace(s))
	}
	return cp, nil
}

func normalizeAdvice(advice map[string]AdvisoryPayload) map[string]AdvisoryPayload {
	out := make(map[string]AdvisoryPayload, len(advice))
	for k, v := range advice {
		out[phase.NormalizePair(k)] = v
	}
	return out
}
