package contracts

import (
	"errors"
	"fmt"
)

const ValidationSchemaVersion = "aion.risk_validation_result.v1"

// Violation and warning codes emitted by the risk rules.
const (
	CodeLiveTradingBlocked       = "live_trading_blocked_phase_policy"
	CodeStopLossRequired         = "stop_loss_required_at_entry"
	CodePositionSizeFailed       = "position_size_calculation_failed"
	CodeRiskPerTradeExceeds      = "risk_per_trade_exceeds_policy"
	CodeRRBelowMin               = "rr_below_min_policy"
	CodeRRBelowPreferred         = "rr_below_preferred"
	CodeSessionMaxLosingTrades   = "session_max_losing_trades_reached"
	CodeMaxDailyRiskExceeded     = "max_daily_risk_exceeded"
	CodeMaxWeeklyRiskExceeded    = "max_weekly_risk_exceeded"
	CodeMaxDrawdownStopTriggered = "max_drawdown_stop_triggered"
	CodeProposalInvalid          = "proposal_invalid"
	CodePolicyInvalid            = "policy_invalid"
)

type RiskDerived struct {
	ComputedSize             *float64 `json:"computed_size"`
	RRRatio                  float64  `json:"rr_ratio"`
	ProjectedDayRiskUsedPct  float64  `json:"projected_day_risk_used_pct"`
	ProjectedWeekRiskUsedPct float64  `json:"projected_week_risk_used_pct"`
	DrawdownPct              float64  `json:"drawdown_pct"`
	RiskDistance             float64  `json:"risk_distance"`
	RewardDistance           float64  `json:"reward_distance"`
}

// RiskValidationResult is the structured output of the risk rules.
type RiskValidationResult struct {
	SchemaVersion string      `json:"schema_version"`
	OK            bool        `json:"ok"`
	Violations    []string    `json:"violations"`
	Warnings      []string    `json:"warnings"`
	Derived       RiskDerived `json:"derived"`
}

func NewRiskValidationResult() RiskValidationResult {
	return RiskValidationResult{
		SchemaVersion: ValidationSchemaVersion,
		Violations:    []string{},
		Warnings:      []string{},
	}
}

func (r *RiskValidationResult) Violate(code string) { r.Violations = append(r.Violations, code) }

func (r *RiskValidationResult) Warn(code string) { r.Warnings = append(r.Warnings, code) }

// Finalize sets OK from the violation list.
func (r *RiskValidationResult) Finalize() { r.OK = len(r.Violations) == 0 }

func (r RiskValidationResult) Validate() error {
	var errs []error
	if r.SchemaVersion != ValidationSchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", ValidationSchemaVersion, r.SchemaVersion))
	}
	if r.OK != (len(r.Violations) == 0) {
		errs = append(errs, errors.New("ok must equal (violations is empty)"))
	}
	return errors.Join(errs...)
}
