package paper

import (
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/risk"
)

const breakevenEpsilon = 1e-12

const (
	OutcomeWin       = "WIN"
	OutcomeLoss      = "LOSS"
	OutcomeBreakeven = "BREAKEVEN"
	OutcomeUnknown   = "UNKNOWN"
)

// Close diagnostic warnings.
const (
	WarnEntryNotNumeric      = "trade_entry_not_numeric_for_close_diagnostics"
	WarnStopNotNumeric       = "trade_stop_loss_not_numeric_for_close_diagnostics"
	WarnTakeProfitNotNumeric = "trade_take_profit_not_numeric_for_close_diagnostics"
	WarnRiskDistanceNonPos   = "trade_risk_distance_non_positive_for_rr_hint"
	WarnReportedOutcomeDiff  = "reported_outcome_differs_from_classification"
)

type OutcomeClassification struct {
	Label             string   `json:"label"`
	PnLDirectional    *float64 `json:"pnl_directional"`
	PnLDirection      string   `json:"pnl_direction"`
	PipSize           float64  `json:"pip_size"`
	PnLPipsHint       *float64 `json:"pnl_pips_hint"`
	HitStopHint       bool     `json:"hit_stop_hint"`
	HitTakeProfitHint bool     `json:"hit_take_profit_hint"`
	RiskDistance      *float64 `json:"risk_distance"`
	RealizedRRHint    *float64 `json:"realized_rr_hint"`
	Warnings          []string `json:"warnings"`
}

// RuleChecks audits the trade's lifecycle from its own event stream.
type RuleChecks struct {
	StopInvariantRespected            bool `json:"stop_invariant_respected"`
	SizeInvariantRespected            bool `json:"size_invariant_respected"`
	ViolationsDetectedDuringLifecycle int  `json:"violations_detected_during_lifecycle"`
	BlockedStopWidenAttempts          int  `json:"blocked_stop_widen_attempts"`
	BlockedSizeUpAttempts             int  `json:"blocked_size_up_attempts"`
}

type RuleCompliance struct {
	EntryScopeOK            bool       `json:"entry_scope_ok"`
	EntryLimitsOK           bool       `json:"entry_limits_ok"`
	EntryLimitsActivated    bool       `json:"entry_limits_activated"`
	EntryRiskOK             bool       `json:"entry_risk_ok"`
	MoveStopEvents          int        `json:"move_stop_events"`
	PartialTakeProfitEvents int        `json:"partial_take_profit_events"`
	Notes                   int        `json:"notes"`
	RuleChecks              RuleChecks `json:"rule_checks"`
}

type FinalResult struct {
	OutcomeLabel           string   `json:"outcome_label"`
	PnLDirection           string   `json:"pnl_direction"`
	CloseReason            string   `json:"close_reason"`
	ReportedOutcome        string   `json:"reported_outcome,omitempty"`
	HeldSeconds            float64  `json:"held_seconds"`
	Managed                bool     `json:"managed"`
	PartialTakeProfitCount int      `json:"partial_take_profit_count"`
	MoveStopCount          int      `json:"move_stop_count"`
	RealizedRRHint         *float64 `json:"realized_rr_hint"`
	PnLPipsHint            *float64 `json:"pnl_pips_hint"`
}

// Scores is a fixed-shape placeholder. Every score is present and null until
// a scoring model exists; consumers should rely on the shape only.
type Scores struct {
	SchemaVersion       string         `json:"schema_version"`
	ExecutionScore      *float64       `json:"execution_score"`
	RiskDisciplineScore *float64       `json:"risk_discipline_score"`
	ThesisQualityScore  *float64       `json:"thesis_quality_score"`
	ManagementScore     *float64       `json:"management_score"`
	PatienceScore       *float64       `json:"patience_score"`
	OverallScore        *float64       `json:"overall_score"`
	Metadata            ScoresMetadata `json:"metadata"`
}

type ScoresMetadata struct {
	Placeholder bool   `json:"placeholder"`
	Scorer      string `json:"scorer"`
}

const ScoresSchemaVersion = "aion.paper_trade_scores.v1"

func scoresScaffold() Scores {
	return Scores{
		SchemaVersion: ScoresSchemaVersion,
		Metadata:      ScoresMetadata{Placeholder: true, Scorer: "none"},
	}
}

func usable(x float64) bool {
	return x > 0 && !math.IsNaN(x) && !math.IsInf(x, 0)
}

// classifyOutcome labels the close from the trade's direction. Stop and TP
// hints are "at or beyond" in the respective direction. The RR hint uses the
// stop the trade was opened with.
func classifyOutcome(t *Trade, closePrice float64) OutcomeClassification {
	oc := OutcomeClassification{
		Label:    OutcomeUnknown,
		PipSize:  risk.PipSize(t.Pair),
		Warnings: []string{},
	}

	entryOK := usable(t.Entry)
	stopOK := usable(t.StopLoss)
	tpOK := usable(t.TakeProfit)
	if !entryOK {
		oc.Warnings = append(oc.Warnings, WarnEntryNotNumeric)
	}
	if !stopOK {
		oc.Warnings = append(oc.Warnings, WarnStopNotNumeric)
	}
	if !tpOK {
		oc.Warnings = append(oc.Warnings, WarnTakeProfitNotNumeric)
	}

	sign := 1.0
	if t.Direction == contracts.Sell {
		sign = -1.0
	}

	if entryOK {
		pnl := sign * (closePrice - t.Entry)
		oc.PnLDirectional = contracts.Float(risk.Round(pnl, 10))
		switch {
		case math.Abs(pnl) < breakevenEpsilon:
			oc.Label, oc.PnLDirection = OutcomeBreakeven, "flat"
		case pnl > 0:
			oc.Label, oc.PnLDirection = OutcomeWin, "positive"
		default:
			oc.Label, oc.PnLDirection = OutcomeLoss, "negative"
		}
		oc.PnLPipsHint = contracts.Float(risk.Round(pnl/oc.PipSize, 1))
	}

	if stopOK {
		oc.HitStopHint = sign*(closePrice-t.StopLoss) <= 0
	}
	if tpOK {
		oc.HitTakeProfitHint = sign*(closePrice-t.TakeProfit) >= 0
	}

	initialStop := t.InitialStopLoss
	if !usable(initialStop) {
		initialStop = t.StopLoss
	}
	if entryOK && usable(initialStop) {
		dist := sign * (t.Entry - initialStop)
		oc.RiskDistance = contracts.Float(risk.Round(dist, 10))
		if dist > 0 {
			oc.RealizedRRHint = contracts.Float(risk.Round(*oc.PnLDirectional/dist, 4))
		} else {
			oc.Warnings = append(oc.Warnings, WarnRiskDistanceNonPos)
		}
	}
	return oc
}

// ruleCompliance echoes the entry gates and audits the trade's events.
func ruleCompliance(t *Trade, events []Event) RuleCompliance {
	rc := RuleCompliance{
		EntryScopeOK:            t.EntryValidation.ScopeOK,
		EntryLimitsOK:           t.EntryValidation.LimitsOK,
		EntryLimitsActivated:    t.EntryValidation.LimitsActivated,
		EntryRiskOK:             t.EntryValidation.RiskOK,
		MoveStopEvents:          len(t.Management.MoveStopEvents),
		PartialTakeProfitEvents: len(t.Management.PartialTakeProfitEvents),
		Notes:                   len(t.Management.Notes),
	}

	for _, ev := range events {
		if ev.TradeID != t.TradeID || ev.EventType != contracts.EventManageRejected {
			continue
		}
		switch gjson.GetBytes(ev.Payload, "reason").String() {
		case ReasonStopInvariants:
			rc.RuleChecks.BlockedStopWidenAttempts++
			rc.RuleChecks.ViolationsDetectedDuringLifecycle++
		case ReasonSizingInvariants:
			rc.RuleChecks.BlockedSizeUpAttempts++
			rc.RuleChecks.ViolationsDetectedDuringLifecycle++
		case ReasonTradeNotFound, ReasonTradeNotOpen:
		default:
			rc.RuleChecks.ViolationsDetectedDuringLifecycle++
		}
	}

	rc.RuleChecks.StopInvariantRespected = stopsMonotonic(t)
	rc.RuleChecks.SizeInvariantRespected = t.Management.partialTaken() <= 1+fractionTolerance
	return rc
}

func stopsMonotonic(t *Trade) bool {
	for _, m := range t.Management.MoveStopEvents {
		switch t.Direction {
		case contracts.Buy:
			if m.NewStopLoss < m.PriorStopLoss {
				return false
			}
		case contracts.Sell:
			if m.NewStopLoss > m.PriorStopLoss {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func finalResult(t *Trade, oc OutcomeClassification, reason, reported string, closedAt time.Time) FinalResult {
	return FinalResult{
		OutcomeLabel:           oc.Label,
		PnLDirection:           oc.PnLDirection,
		CloseReason:            reason,
		ReportedOutcome:        reported,
		HeldSeconds:            math.Max(0, closedAt.Sub(t.OpenedTS).Seconds()),
		Managed:                t.Management.count() > 0,
		PartialTakeProfitCount: len(t.Management.PartialTakeProfitEvents),
		MoveStopCount:          len(t.Management.MoveStopEvents),
		RealizedRRHint:         oc.RealizedRRHint,
		PnLPipsHint:            oc.PnLPipsHint,
	}
}
