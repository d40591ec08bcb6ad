package contracts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const ProposalSchemaVersion = "aion.trade_proposal.v1"

// TradeProposal is a complete entry intent for one paper trade.
type TradeProposal struct {
	SchemaVersion string `json:"schema_version"`

	Pair         string       `json:"pair"`
	StrategyTier StrategyTier `json:"strategy_tier"`
	Direction    Direction    `json:"direction"`
	AccountMode  AccountMode  `json:"account_mode"`
	Session      Session      `json:"session,omitempty"`

	Entry      float64  `json:"entry"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit float64  `json:"take_profit"`

	AccountEquity float64 `json:"account_equity"`
	RiskPct       float64 `json:"risk_pct"`
	PipValue      float64 `json:"pip_value"`
	StopPips      float64 `json:"stop_pips"`

	Size      *float64          `json:"size,omitempty"`
	Thesis    string            `json:"thesis,omitempty"`
	SetupTags []string          `json:"setup_tags,omitempty"`
	Metadata  *ProposalMetadata `json:"metadata,omitempty"`
}

// ProposalMetadata is the proposal-embedded override channel. Fields here
// sit between the proposal's top-level fields and the request metadata in
// the scope precedence table.
type ProposalMetadata struct {
	Pair           string `json:"pair,omitempty" mapstructure:"pair"`
	Session        string `json:"session,omitempty" mapstructure:"session"`
	StrategyTier   string `json:"strategy_tier,omitempty" mapstructure:"strategy_tier"`
	AccountMode    string `json:"account_mode,omitempty" mapstructure:"account_mode"`
	SetupGrade     string `json:"setup_grade,omitempty" mapstructure:"setup_grade"`
	RedEventActive *bool  `json:"red_event_active,omitempty" mapstructure:"red_event_active"`
	// EODDebriefAck is recorded for audit only; the limits gate ignores
	// proposal-embedded acknowledgements.
	EODDebriefAck *bool `json:"eod_debrief_ack,omitempty" mapstructure:"eod_debrief_ack"`
}

// Float is a helper for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Bool is a helper for optional flags.
func Bool(v bool) *bool { return &v }

// Int is a helper for optional counters.
func Int(v int) *int { return &v }

// ValidateShape checks the schema tag and the closed enum fields. Numeric
// sanity is left to the risk rules so that each problem surfaces under its
// own violation code.
func (p TradeProposal) ValidateShape() error {
	var errs []error
	if p.SchemaVersion != ProposalSchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", ProposalSchemaVersion, p.SchemaVersion))
	}
	if strings.TrimSpace(p.Pair) == "" {
		errs = append(errs, errors.New("pair is required"))
	}
	if !p.StrategyTier.Valid() {
		errs = append(errs, fmt.Errorf("strategy_tier %q is not recognised", p.StrategyTier))
	}
	if !p.Direction.Valid() {
		errs = append(errs, fmt.Errorf("direction %q is not recognised", p.Direction))
	}
	if !p.AccountMode.Valid() {
		errs = append(errs, fmt.Errorf("account_mode %q is not recognised", p.AccountMode))
	}
	if p.Session != "" && !p.Session.Valid() {
		errs = append(errs, fmt.Errorf("session %q is not recognised", p.Session))
	}
	return errors.Join(errs...)
}

// ValidatePrices checks that entry, take profit and any stop are positive
// finite prices.
func (p TradeProposal) ValidatePrices() error {
	var errs []error
	if !price(p.Entry) {
		errs = append(errs, errors.New("entry must be > 0"))
	}
	if !price(p.TakeProfit) {
		errs = append(errs, errors.New("take_profit must be > 0"))
	}
	if p.StopLoss != nil && !price(*p.StopLoss) {
		errs = append(errs, errors.New("stop_loss must be > 0 when present"))
	}
	return errors.Join(errs...)
}

func price(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// Validate is ValidateShape plus the required numeric fields.
func (p TradeProposal) Validate() error {
	errs := []error{p.ValidateShape(), p.ValidatePrices()}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"account_equity", p.AccountEquity},
		{"risk_pct", p.RiskPct},
		{"pip_value", p.PipValue},
		{"stop_pips", p.StopPips},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0", f.name))
		}
	}
	return errors.Join(errs...)
}

// RequestMetadata is the caller-supplied metadata on a submission. It is the
// lowest precedence override channel for scope fields and the only source
// (together with AccountStats) for phase signals such as the EOD ack.
type RequestMetadata struct {
	Pair         string `json:"pair,omitempty" mapstructure:"pair"`
	Session      string `json:"session,omitempty" mapstructure:"session"`
	StrategyTier string `json:"strategy_tier,omitempty" mapstructure:"strategy_tier"`
	AccountMode  string `json:"account_mode,omitempty" mapstructure:"account_mode"`

	SetupGrade             string `json:"setup_grade,omitempty" mapstructure:"setup_grade"`
	Grade                  string `json:"grade,omitempty" mapstructure:"grade"`
	IsAGrade               *bool  `json:"is_a_grade,omitempty" mapstructure:"is_a_grade"`
	RedEventActive         *bool  `json:"red_event_active,omitempty" mapstructure:"red_event_active"`
	EODDebriefAck          *bool  `json:"eod_debrief_ack,omitempty" mapstructure:"eod_debrief_ack"`
	EODDebriefAcknowledged *bool  `json:"eod_debrief_acknowledged,omitempty" mapstructure:"eod_debrief_acknowledged"`
	EODDebriefRequired     *bool  `json:"eod_debrief_required,omitempty" mapstructure:"eod_debrief_required"`
	AGradeOnly             *bool  `json:"a_grade_only,omitempty" mapstructure:"a_grade_only"`
	MaxTradesPerSession    *int   `json:"max_trades_per_session,omitempty" mapstructure:"max_trades_per_session"`

	Extra map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// DecodeRequestMetadata converts a loosely typed mapping (CLI flags, JSON
// bodies) into RequestMetadata. "true"/"1" style strings are accepted.
func DecodeRequestMetadata(raw map[string]any) (RequestMetadata, error) {
	var md RequestMetadata
	if len(raw) == 0 {
		return md, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &md,
	})
	if err != nil {
		return md, err
	}
	if err := dec.Decode(raw); err != nil {
		return md, fmt.Errorf("decode request metadata: %w", err)
	}
	return md, nil
}

// HasPhaseSignals reports whether the request carries any of the explicit
// phase-relevant signals.
func (m RequestMetadata) HasPhaseSignals() bool {
	return strings.TrimSpace(m.SetupGrade) != "" ||
		strings.TrimSpace(m.Grade) != "" ||
		m.IsAGrade != nil ||
		m.RedEventActive != nil ||
		m.EODDebriefAck != nil ||
		m.EODDebriefAcknowledged != nil ||
		m.EODDebriefRequired != nil ||
		m.AGradeOnly != nil ||
		m.MaxTradesPerSession != nil
}

// SessionStats are the per-session counters supplied with a submission.
type SessionStats struct {
	TradesTaken  *int `json:"trades_taken,omitempty" mapstructure:"trades_taken"`
	LosingTrades int  `json:"losing_trades" mapstructure:"losing_trades"`
}

// AccountStats are the account-level counters supplied with a submission.
type AccountStats struct {
	DayRiskUsedPct  float64 `json:"day_risk_used_pct" mapstructure:"day_risk_used_pct"`
	WeekRiskUsedPct float64 `json:"week_risk_used_pct" mapstructure:"week_risk_used_pct"`
	DrawdownPct     float64 `json:"drawdown_pct" mapstructure:"drawdown_pct"`

	RedEventActive *bool `json:"red_event_active,omitempty" mapstructure:"red_event_active"`
	EODDebriefAck  *bool `json:"eod_debrief_ack,omitempty" mapstructure:"eod_debrief_ack"`
}
