package contracts

import (
	"errors"
	"fmt"
)

const PolicySchemaVersion = "aion.trading_risk_policy.v1"

// TradingRiskPolicy holds the hard caps every paper trade is checked
// against. Percentages are whole percent (1.0 == 1%).
type TradingRiskPolicy struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version" mapstructure:"schema_version"`

	MaxRiskPerTradePct float64 `json:"max_risk_per_trade_pct" yaml:"max_risk_per_trade_pct" mapstructure:"max_risk_per_trade_pct"`
	MaxRiskPerDayPct   float64 `json:"max_risk_per_day_pct" yaml:"max_risk_per_day_pct" mapstructure:"max_risk_per_day_pct"`
	MaxRiskPerWeekPct  float64 `json:"max_risk_per_week_pct" yaml:"max_risk_per_week_pct" mapstructure:"max_risk_per_week_pct"`
	MaxDrawdownStopPct float64 `json:"max_drawdown_stop_pct" yaml:"max_drawdown_stop_pct" mapstructure:"max_drawdown_stop_pct"`

	MinRR       float64 `json:"min_rr" yaml:"min_rr" mapstructure:"min_rr"`
	PreferredRR float64 `json:"preferred_rr" yaml:"preferred_rr" mapstructure:"preferred_rr"`

	MaxLosingTradesPerSession int `json:"max_losing_trades_per_session" yaml:"max_losing_trades_per_session" mapstructure:"max_losing_trades_per_session"`

	RequireStopLossAtEntry bool `json:"require_stop_loss_at_entry" yaml:"require_stop_loss_at_entry" mapstructure:"require_stop_loss_at_entry"`
	ForbidAveragingDown    bool `json:"forbid_averaging_down" yaml:"forbid_averaging_down" mapstructure:"forbid_averaging_down"`
	ForbidStopWidening     bool `json:"forbid_stop_widening" yaml:"forbid_stop_widening" mapstructure:"forbid_stop_widening"`
	PaperOnly              bool `json:"paper_only" yaml:"paper_only" mapstructure:"paper_only"`
}

// DefaultPolicy returns the Phase 2 risk policy.
func DefaultPolicy() TradingRiskPolicy {
	return TradingRiskPolicy{
		SchemaVersion:             PolicySchemaVersion,
		MaxRiskPerTradePct:        1.0,
		MaxRiskPerDayPct:          3.0,
		MaxRiskPerWeekPct:         6.0,
		MaxDrawdownStopPct:        10.0,
		MinRR:                     1.5,
		PreferredRR:               2.0,
		MaxLosingTradesPerSession: 2,
		RequireStopLossAtEntry:    true,
		ForbidAveragingDown:       true,
		ForbidStopWidening:        true,
		PaperOnly:                 true,
	}
}

// Validate checks the schema tag and that every cap is usable.
func (p TradingRiskPolicy) Validate() error {
	var errs []error
	if p.SchemaVersion != PolicySchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", PolicySchemaVersion, p.SchemaVersion))
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"max_risk_per_trade_pct", p.MaxRiskPerTradePct},
		{"max_risk_per_day_pct", p.MaxRiskPerDayPct},
		{"max_risk_per_week_pct", p.MaxRiskPerWeekPct},
		{"max_drawdown_stop_pct", p.MaxDrawdownStopPct},
		{"min_rr", p.MinRR},
		{"preferred_rr", p.PreferredRR},
	}
	for _, f := range positive {
		if !(f.v > 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0", f.name))
		}
	}
	if p.MaxLosingTradesPerSession < 1 {
		errs = append(errs, errors.New("max_losing_trades_per_session must be >= 1"))
	}
	return errors.Join(errs...)
}

// Warnings reports soft inconsistencies that do not fail validation.
func (p TradingRiskPolicy) Warnings() []string {
	var w []string
	if p.PreferredRR < p.MinRR {
		w = append(w, "preferred_rr_below_min_rr")
	}
	return w
}
