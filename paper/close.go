package paper

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/journal"
	"github.com/rustyeddy/aion/metrics"
)

// Close reasons and violations.
const (
	ReasonCloseValidation     = "close_validation_failed"
	ReasonInvalidClose        = "invalid_close_payload"
	CodeCloseReasonRequired   = "close_reason_required"
	CodeClosePricePositive    = "close_price_must_be_positive"
	CodeCloseDirectionInvalid = "trade_direction_invalid_for_close"
	CodeClosePriceType        = "close_price_invalid_type"
)

// CloseRequest carries the close inputs. ClosePrice is untyped so loosely
// typed callers (CLI, JSON) can be rejected with a type error instead of a
// zero price.
type CloseRequest struct {
	ClosePrice  any    `json:"close_price" mapstructure:"close_price"`
	CloseReason string `json:"close_reason" mapstructure:"close_reason"`
	// Outcome is the caller's own label. It is recorded next to the
	// computed classification and never replaces it.
	Outcome string `json:"outcome,omitempty" mapstructure:"outcome"`
}

type CloseValidation struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

type CloseResult struct {
	OK                     bool                   `json:"ok"`
	TradeID                string                 `json:"trade_id"`
	Status                 contracts.TradeStatus  `json:"status,omitempty"`
	Trade                  *Trade                 `json:"trade,omitempty"`
	Event                  Event                  `json:"event"`
	CloseValidation        CloseValidation        `json:"close_validation"`
	OutcomeClassification  *OutcomeClassification `json:"outcome_classification"`
	RuleComplianceSnapshot *RuleCompliance        `json:"rule_compliance_snapshot"`
	FinalResult            *FinalResult           `json:"final_result"`
	Scores                 *Scores                `json:"scores"`
	Reason                 string                 `json:"reason,omitempty"`
	Violations             []string               `json:"violations,omitempty"`
	Meta                   Meta                   `json:"meta"`
}

type closePayload struct {
	Reason                 string                 `json:"reason,omitempty"`
	Violations             []string               `json:"violations,omitempty"`
	Request                CloseRequest           `json:"request"`
	CloseValidation        CloseValidation        `json:"close_validation"`
	OutcomeClassification  *OutcomeClassification `json:"outcome_classification,omitempty"`
	RuleComplianceSnapshot *RuleCompliance        `json:"rule_compliance_snapshot,omitempty"`
	FinalResult            *FinalResult           `json:"final_result,omitempty"`
	Scores                 *Scores                `json:"scores,omitempty"`
}

// Close validates the request, computes the close diagnostics and flips the
// trade to CLOSED. The transition happens once; later calls see CLOSED and
// are rejected.
func (r *Runtime) Close(tradeID string, req CloseRequest) CloseResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := CloseResult{
		TradeID:         tradeID,
		CloseValidation: CloseValidation{Violations: []string{}, Warnings: []string{}},
	}

	t, ok := r.trades[tradeID]
	if !ok {
		return r.rejectClose(res, req, ReasonTradeNotFound, nil)
	}
	if t.Status != contracts.StatusOpen {
		return r.rejectClose(res, req, ReasonTradeNotOpen, nil)
	}

	price, ok := number(req.ClosePrice)
	if !ok {
		return r.rejectClose(res, req, ReasonInvalidClose, []string{CodeClosePriceType})
	}
	reason := strings.TrimSpace(req.CloseReason)
	var violations []string
	if reason == "" {
		violations = append(violations, CodeCloseReasonRequired)
	}
	if !(price > 0) {
		violations = append(violations, CodeClosePricePositive)
	}
	if !t.Direction.Valid() {
		violations = append(violations, CodeCloseDirectionInvalid)
	}
	if len(violations) > 0 {
		return r.rejectClose(res, req, ReasonCloseValidation, violations)
	}

	now := r.now()
	oc := classifyOutcome(t, price)
	rc := ruleCompliance(t, r.events)
	reported := strings.ToUpper(strings.TrimSpace(req.Outcome))
	if reported != "" && reported != oc.Label {
		res.CloseValidation.Warnings = append(res.CloseValidation.Warnings, WarnReportedOutcomeDiff)
	}
	fr := finalResult(t, oc, reason, reported, now)
	scores := scoresScaffold()
	res.CloseValidation.OK = true

	closedAt := now
	t.Status = contracts.StatusClosed
	t.ClosePrice = contracts.Float(price)
	t.CloseReason = reason
	t.ClosedTS = &closedAt
	t.UpdatedTS = now
	t.Close = &CloseRecord{
		ClosePrice:             price,
		CloseReason:            reason,
		ClosedTS:               closedAt,
		CloseValidation:        res.CloseValidation,
		OutcomeClassification:  oc,
		RuleComplianceSnapshot: rc,
		FinalResult:            fr,
		Scores:                 scores,
	}

	res.Event = r.emit(contracts.EventClosed, tradeID, closePayload{
		Request:                req,
		CloseValidation:        res.CloseValidation,
		OutcomeClassification:  &oc,
		RuleComplianceSnapshot: &rc,
		FinalResult:            &fr,
		Scores:                 &scores,
	})
	r.mirror(t)
	r.log.Info().Str("trade_id", tradeID).Str("outcome", oc.Label).Str("reason", reason).Msg("paper trade closed")

	snapshot := t.clone()
	res.OK = true
	res.Status = t.Status
	res.Trade = &snapshot
	res.OutcomeClassification = &oc
	res.RuleComplianceSnapshot = &rc
	res.FinalResult = &fr
	res.Scores = &scores
	res.Meta = r.meta()
	return res
}

func (r *Runtime) rejectClose(res CloseResult, req CloseRequest, reason string, violations []string) CloseResult {
	res.Reason = reason
	res.Violations = violations
	if violations != nil {
		res.CloseValidation.Violations = violations
	}
	res.Event = r.emit(contracts.EventCloseRejected, res.TradeID, closePayload{
		Reason:          reason,
		Violations:      violations,
		Request:         req,
		CloseValidation: res.CloseValidation,
	})
	if t, ok := r.trades[res.TradeID]; ok {
		snapshot := t.clone()
		res.Trade = &snapshot
		res.Status = t.Status
	}
	r.log.Info().Str("trade_id", res.TradeID).Str("reason", reason).Msg("close rejected")
	res.Meta = r.meta()
	return res
}

// mirror writes the closed trade to the recorder. Failures are logged only.
func (r *Runtime) mirror(t *Trade) {
	oc := t.Close.OutcomeClassification
	rec := journal.TradeRecord{
		TradeID:      t.TradeID,
		Pair:         t.Pair,
		Direction:    string(t.Direction),
		StrategyTier: t.StrategyTier,
		Session:      t.Session,
		Entry:        t.Entry,
		StopLoss:     t.StopLoss,
		TakeProfit:   t.TakeProfit,
		ClosePrice:   t.Close.ClosePrice,
		OpenTime:     t.OpenedTS,
		CloseTime:    t.Close.ClosedTS,
		Outcome:      oc.Label,
		Reason:       t.Close.CloseReason,
	}
	if oc.PnLPipsHint != nil {
		rec.PnLPips = *oc.PnLPipsHint
	}
	if oc.RealizedRRHint != nil {
		rec.RealizedRR = *oc.RealizedRRHint
	}
	if err := r.recorder.RecordTrade(rec); err != nil {
		metrics.PersistenceFailures.WithLabelValues(metrics.OpJournal).Inc()
		r.log.Warn().Err(err).Str("op", metrics.OpJournal).Str("trade_id", t.TradeID).Msg("closed trade mirror failed")
	}
}

// DecodeCloseRequest builds a CloseRequest from a loosely typed mapping. The
// close price is passed through untouched so type errors surface from Close.
func DecodeCloseRequest(raw map[string]any) (CloseRequest, error) {
	req := CloseRequest{ClosePrice: raw["close_price"]}
	for _, key := range []string{"close_reason", "reason"} {
		if v, ok := raw[key]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return req, fmt.Errorf("decode close request: %s must be a string", key)
			}
			req.CloseReason = s
			break
		}
	}
	if v, ok := raw["outcome"].(string); ok {
		req.Outcome = v
	}
	return req, nil
}
