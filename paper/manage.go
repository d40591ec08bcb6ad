package paper

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/aion/contracts"
)

// Manage actions.
const (
	ActionMoveStop    = "move_stop"
	ActionTakePartial = "take_partial"
	ActionAddNote     = "add_note"
)

// Manage reasons and violations.
const (
	ReasonTradeNotFound     = "trade_not_found"
	ReasonTradeNotOpen      = "trade_not_open"
	ReasonSizingInvariants  = "phase2_position_sizing_invariants_failed"
	ReasonStopInvariants    = "phase2_stop_invariants_failed"
	ReasonInvalidManage     = "invalid_manage_payload"
	ReasonUnsupportedAction = "unsupported_manage_action"
	CodeNoSizeUp            = "phase2_no_size_up_during_open_trade"
	CodeNoAveragingDown     = "phase2_no_averaging_down"
	CodeStopNeverWidenBuy   = "phase2_stop_never_widen_buy"
	CodeStopNeverWidenSell  = "phase2_stop_never_widen_sell"
	CodeMoveStopInvalidType = "move_stop_invalid_stop_loss_type"
	CodeMoveStopUnknownDir  = "move_stop_unknown_trade_direction"
	CodePartialInvalidType  = "take_partial_invalid_fraction_type"
	CodePartialOutOfRange   = "take_partial_fraction_out_of_range"
	CodePartialExceedsRest  = "take_partial_fraction_exceeds_remaining"
	CodePartialInvalidPrice = "take_partial_invalid_price_type"
	CodeNoteRequired        = "add_note_text_required"
	CodeUnsupportedAction   = "unsupported manage action"
)

// sizeUpActions can never be applied to an open trade.
var sizeUpActions = map[string]bool{
	"add_to_position": true,
	"scale_in":        true,
	"increase_size":   true,
	"average_down":    true,
	"average_up":      true,
	"pyramid":         true,
}

type ManageResult struct {
	OK         bool     `json:"ok"`
	TradeID    string   `json:"trade_id"`
	Action     string   `json:"action"`
	Trade      *Trade   `json:"trade,omitempty"`
	Event      Event    `json:"event"`
	Reason     string   `json:"reason,omitempty"`
	Violations []string `json:"violations,omitempty"`
	Meta       Meta     `json:"meta"`
}

type managePayload struct {
	Action     string         `json:"action"`
	Reason     string         `json:"reason,omitempty"`
	Violations []string       `json:"violations,omitempty"`
	Request    map[string]any `json:"request,omitempty"`
	Applied    any            `json:"applied,omitempty"`
	StopLoss   *float64       `json:"stop_loss,omitempty"`
}

// NormalizeAction lowercases an action name and folds '-' and ' ' to '_'.
func NormalizeAction(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	return strings.NewReplacer("-", "_", " ", "_").Replace(a)
}

// Manage applies one lifecycle action to an open trade. Accepted actions
// only append to the management lists or tighten the stop.
func (r *Runtime) Manage(tradeID, action string, payload map[string]any) ManageResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	act := NormalizeAction(action)
	res := ManageResult{TradeID: tradeID, Action: act}

	t, ok := r.trades[tradeID]
	if !ok {
		return r.rejectManage(res, payload, ReasonTradeNotFound, nil)
	}
	if t.Status != contracts.StatusOpen {
		return r.rejectManage(res, payload, ReasonTradeNotOpen, nil)
	}
	if sizeUpActions[act] {
		return r.rejectManage(res, payload, ReasonSizingInvariants, []string{CodeNoSizeUp, CodeNoAveragingDown})
	}

	now := r.now()
	var applied any
	switch act {
	case ActionMoveStop:
		raw, ok := payload["stop_loss"]
		if !ok {
			raw = payload["new_stop_loss"]
		}
		newStop, ok := number(raw)
		if !ok {
			return r.rejectManage(res, payload, ReasonInvalidManage, []string{CodeMoveStopInvalidType})
		}
		switch t.Direction {
		case contracts.Buy:
			if newStop < t.StopLoss {
				return r.rejectManage(res, payload, ReasonStopInvariants, []string{CodeStopNeverWidenBuy})
			}
		case contracts.Sell:
			if newStop > t.StopLoss {
				return r.rejectManage(res, payload, ReasonStopInvariants, []string{CodeStopNeverWidenSell})
			}
		default:
			return r.rejectManage(res, payload, ReasonStopInvariants, []string{CodeMoveStopUnknownDir})
		}
		ev := MoveStopEvent{
			TS:            now,
			NewStopLoss:   newStop,
			PriorStopLoss: t.StopLoss,
			EntrySnapshot: t.Entry,
			Reason:        stringField(payload, "reason"),
		}
		t.Management.MoveStopEvents = append(t.Management.MoveStopEvents, ev)
		t.StopLoss = newStop
		applied = ev

	case ActionTakePartial:
		fraction, ok := number(payload["fraction"])
		if !ok {
			return r.rejectManage(res, payload, ReasonInvalidManage, []string{CodePartialInvalidType})
		}
		if !(fraction > 0 && fraction <= 1) {
			return r.rejectManage(res, payload, ReasonInvalidManage, []string{CodePartialOutOfRange})
		}
		if t.Management.partialTaken()+fraction > 1+fractionTolerance {
			return r.rejectManage(res, payload, ReasonSizingInvariants, []string{CodePartialExceedsRest})
		}
		ev := PartialTakeProfitEvent{TS: now, Fraction: fraction, Reason: stringField(payload, "reason")}
		if raw, present := payload["price"]; present && raw != nil {
			price, ok := number(raw)
			if !ok {
				return r.rejectManage(res, payload, ReasonInvalidManage, []string{CodePartialInvalidPrice})
			}
			ev.Price = contracts.Float(price)
		}
		t.Management.PartialTakeProfitEvents = append(t.Management.PartialTakeProfitEvents, ev)
		applied = ev

	case ActionAddNote:
		text := stringField(payload, "note")
		if text == "" {
			text = stringField(payload, "text")
		}
		if text == "" {
			return r.rejectManage(res, payload, ReasonInvalidManage, []string{CodeNoteRequired})
		}
		n := Note{TS: now, Text: text}
		t.Management.Notes = append(t.Management.Notes, n)
		applied = n

	default:
		return r.rejectManage(res, payload, ReasonUnsupportedAction, []string{CodeUnsupportedAction})
	}

	t.UpdatedTS = now
	snapshot := t.clone()
	res.Event = r.emit(contracts.EventManaged, tradeID, managePayload{
		Action:   act,
		Request:  payload,
		Applied:  applied,
		StopLoss: contracts.Float(t.StopLoss),
	})
	r.log.Debug().Str("trade_id", tradeID).Str("action", act).Msg("paper trade managed")

	res.OK = true
	res.Trade = &snapshot
	res.Meta = r.meta()
	return res
}

func (r *Runtime) rejectManage(res ManageResult, payload map[string]any, reason string, violations []string) ManageResult {
	res.Reason = reason
	res.Violations = violations
	res.Event = r.emit(contracts.EventManageRejected, res.TradeID, managePayload{
		Action:     res.Action,
		Reason:     reason,
		Violations: violations,
		Request:    payload,
	})
	if t, ok := r.trades[res.TradeID]; ok {
		snapshot := t.clone()
		res.Trade = &snapshot
	}
	r.log.Info().Str("trade_id", res.TradeID).Str("action", res.Action).Str("reason", reason).Msg("manage rejected")
	res.Meta = r.meta()
	return res
}

// number accepts Go and JSON numeric values. Strings, bools and non-finite
// values are not numbers.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
