// Package paper is the in-memory paper-trade runtime: gated submission,
// lifecycle management, close-time diagnostics, and an append-only event
// stream that can be mirrored to disk and restored.
//
// Every mutating call is serialised by one mutex. Scope, limits and risk
// gates fail closed; persistence and the closed-trade mirror fail open.
package paper

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rustyeddy/aion/contracts"
)

const RuntimeName = "aion.paper_runtime"

// ErrTradeNotFound is returned by Get for an unknown trade id.
var ErrTradeNotFound = errors.New("paper trade not found")

// Submission reasons.
const (
	ReasonScopeFailed  = "phase2_scope_or_progression_validation_failed"
	ReasonLimitsFailed = "phase2_initial_trade_limits_validation_failed"
	ReasonRiskFailed   = "risk_validation_failed"
)

const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// EntryValidation echoes which gates passed when the trade was accepted.
type EntryValidation struct {
	ScopeOK         bool     `json:"scope_ok"`
	LimitsOK        bool     `json:"limits_ok"`
	LimitsActivated bool     `json:"limits_activated"`
	RiskOK          bool     `json:"risk_ok"`
	RRRatio         float64  `json:"rr_ratio"`
	Warnings        []string `json:"warnings"`
}

type MoveStopEvent struct {
	TS            time.Time `json:"ts"`
	NewStopLoss   float64   `json:"new_stop_loss"`
	PriorStopLoss float64   `json:"prior_stop_loss"`
	EntrySnapshot float64   `json:"entry_snapshot"`
	Reason        string    `json:"reason,omitempty"`
}

type PartialTakeProfitEvent struct {
	TS       time.Time `json:"ts"`
	Fraction float64   `json:"fraction"`
	Price    *float64  `json:"price"`
	Reason   string    `json:"reason,omitempty"`
}

type Note struct {
	TS   time.Time `json:"ts"`
	Text string    `json:"text"`
}

// Management holds the append-only lifecycle lists of an open trade.
type Management struct {
	MoveStopEvents          []MoveStopEvent          `json:"move_stop_events"`
	PartialTakeProfitEvents []PartialTakeProfitEvent `json:"partial_take_profit_events"`
	Notes                   []Note                   `json:"notes"`
}

func (m Management) count() int {
	return len(m.MoveStopEvents) + len(m.PartialTakeProfitEvents) + len(m.Notes)
}

const fractionTolerance = 1e-9

// partialTaken is the summed fraction of all partial closes so far.
func (m Management) partialTaken() float64 {
	total := 0.0
	for _, p := range m.PartialTakeProfitEvents {
		total += p.Fraction
	}
	return total
}

// CloseRecord is written once, together with the OPEN to CLOSED transition.
type CloseRecord struct {
	ClosePrice             float64               `json:"close_price"`
	CloseReason            string                `json:"close_reason"`
	ClosedTS               time.Time             `json:"closed_ts"`
	CloseValidation        CloseValidation       `json:"close_validation"`
	OutcomeClassification  OutcomeClassification `json:"outcome_classification"`
	RuleComplianceSnapshot RuleCompliance        `json:"rule_compliance_snapshot"`
	FinalResult            FinalResult           `json:"final_result"`
	Scores                 Scores                `json:"scores"`
}

// Trade is one paper trade. Entry and TakeProfit are fixed at acceptance;
// StopLoss only moves in the protective direction.
type Trade struct {
	TradeID   string                `json:"trade_id"`
	Status    contracts.TradeStatus `json:"status"`
	OpenedTS  time.Time             `json:"opened_ts"`
	UpdatedTS time.Time             `json:"updated_ts"`
	ClosedTS  *time.Time            `json:"closed_ts"`

	Pair         string              `json:"pair"`
	Session      string              `json:"session"`
	StrategyTier string              `json:"strategy_tier"`
	AccountMode  string              `json:"account_mode"`
	Direction    contracts.Direction `json:"direction"`
	SetupGrade   string              `json:"setup_grade,omitempty"`

	Entry           float64  `json:"entry"`
	StopLoss        float64  `json:"stop_loss"`
	InitialStopLoss float64  `json:"initial_stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	Size            *float64 `json:"size"`
	RiskPct         float64  `json:"risk_pct"`
	Thesis          string   `json:"thesis,omitempty"`
	SetupTags       []string `json:"setup_tags,omitempty"`

	EntryValidation EntryValidation `json:"entry_validation"`
	Management      Management      `json:"management"`

	ClosePrice  *float64     `json:"close_price"`
	CloseReason string       `json:"close_reason,omitempty"`
	Close       *CloseRecord `json:"close"`
}

// clone returns a copy that shares no mutable state with t.
func (t *Trade) clone() Trade {
	c := *t
	if t.ClosedTS != nil {
		ts := *t.ClosedTS
		c.ClosedTS = &ts
	}
	if t.Size != nil {
		c.Size = contracts.Float(*t.Size)
	}
	if t.ClosePrice != nil {
		c.ClosePrice = contracts.Float(*t.ClosePrice)
	}
	c.SetupTags = append([]string(nil), t.SetupTags...)
	c.EntryValidation.Warnings = append([]string(nil), t.EntryValidation.Warnings...)
	c.Management = Management{
		MoveStopEvents:          append([]MoveStopEvent{}, t.Management.MoveStopEvents...),
		PartialTakeProfitEvents: append([]PartialTakeProfitEvent{}, t.Management.PartialTakeProfitEvents...),
		Notes:                   append([]Note{}, t.Management.Notes...),
	}
	if t.Close != nil {
		cr := *t.Close
		c.Close = &cr
	}
	return c
}

// Event is one row of the append-only event stream.
type Event struct {
	EventID   string              `json:"event_id"`
	EventType contracts.EventType `json:"event_type"`
	TS        time.Time           `json:"ts"`
	TradeID   string              `json:"trade_id,omitempty"`
	Payload   json.RawMessage     `json:"payload"`
}

// Meta is attached to every result envelope.
type Meta struct {
	Runtime            string    `json:"runtime"`
	Phase              string    `json:"phase"`
	TS                 time.Time `json:"ts"`
	PersistenceEnabled bool      `json:"persistence_enabled"`
}
