package paper

import (
	"slices"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/metrics"
	"github.com/rustyeddy/aion/phase"
	"github.com/rustyeddy/aion/pkg/id"
	"github.com/rustyeddy/aion/risk"
)

// SubmitRequest is one entry intent plus the optional counters, policy
// override and caller metadata.
type SubmitRequest struct {
	Proposal     contracts.TradeProposal
	SessionStats *contracts.SessionStats
	AccountStats *contracts.AccountStats
	Policy       *contracts.TradingRiskPolicy
	Metadata     contracts.RequestMetadata
}

type SubmitResult struct {
	OK               bool                            `json:"ok"`
	Status           string                          `json:"status"`
	TradeID          string                          `json:"trade_id,omitempty"`
	Trade            *Trade                          `json:"trade,omitempty"`
	Event            Event                           `json:"event"`
	ScopeValidation  *phase.ScopeResult              `json:"scope_validation"`
	LimitsValidation *phase.LimitsResult             `json:"phase2_limits_validation"`
	Validation       *contracts.RiskValidationResult `json:"validation"`
	Reason           string                          `json:"reason,omitempty"`
	Violations       []string                        `json:"violations,omitempty"`
	Meta             Meta                            `json:"meta"`
}

type submitPayload struct {
	Reason           string                          `json:"reason,omitempty"`
	Violations       []string                        `json:"violations,omitempty"`
	Pair             string                          `json:"pair"`
	Direction        contracts.Direction             `json:"direction"`
	ScopeValidation  *phase.ScopeResult              `json:"scope_validation,omitempty"`
	LimitsValidation *phase.LimitsResult             `json:"phase2_limits_validation,omitempty"`
	Validation       *contracts.RiskValidationResult `json:"validation,omitempty"`
	Trade            *Trade                          `json:"trade,omitempty"`
	Decision         contracts.DecisionRecord        `json:"decision"`
}

// Submit runs the scope gate, the initial-trade-limits gate and the risk
// rules in that order. The first failing gate rejects the submission and
// the later gates are not run. Nothing is stored on rejection.
func (r *Runtime) Submit(req SubmitRequest) SubmitResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := req.Proposal
	res := SubmitResult{Status: StatusRejected}

	scope := failClosed(r.log, "scope",
		func() phase.ScopeResult { return phase.ValidateScope(p, req.Metadata) },
		func(code string) phase.ScopeResult {
			return phase.ScopeResult{Violations: []string{code}, Warnings: []string{}}
		})
	res.ScopeValidation = &scope
	if !scope.OK {
		return r.reject(res, ReasonScopeFailed, scope.Violations, p)
	}

	limits := failClosed(r.log, "limits",
		func() phase.LimitsResult {
			return phase.ValidateInitialTradeLimits(p, req.Metadata, req.SessionStats, req.AccountStats, r.limits)
		},
		func(code string) phase.LimitsResult {
			return phase.LimitsResult{Violations: []string{code}, Warnings: []string{}}
		})
	res.LimitsValidation = &limits
	if !limits.OK {
		return r.reject(res, ReasonLimitsFailed, limits.Violations, p)
	}

	policy := req.Policy
	if policy == nil {
		policy = r.policy
	}
	validation := failClosed(r.log, "risk",
		func() contracts.RiskValidationResult {
			v := risk.Evaluate(p, risk.EffectivePolicy(policy), req.SessionStats, req.AccountStats)
			// Lifecycle rules need a stop whatever the policy says.
			if p.StopLoss == nil && !slices.Contains(v.Violations, contracts.CodeStopLossRequired) {
				v.Violate(contracts.CodeStopLossRequired)
				v.Finalize()
			}
			return v
		},
		func(code string) contracts.RiskValidationResult {
			v := contracts.NewRiskValidationResult()
			v.Violate(code)
			v.Finalize()
			return v
		})
	res.Validation = &validation
	if !validation.OK {
		return r.reject(res, ReasonRiskFailed, validation.Violations, p)
	}

	now := r.now()
	t := &Trade{
		TradeID:         id.New(),
		Status:          contracts.StatusOpen,
		OpenedTS:        now,
		UpdatedTS:       now,
		Pair:            scope.Derived.Pair.Value,
		Session:         scope.Derived.Session.Value,
		StrategyTier:    scope.Derived.StrategyTier.Value,
		AccountMode:     scope.Derived.AccountMode.Value,
		Direction:       p.Direction,
		SetupGrade:      limits.Derived.SetupGrade.Value,
		Entry:           p.Entry,
		StopLoss:        *p.StopLoss,
		InitialStopLoss: *p.StopLoss,
		TakeProfit:      p.TakeProfit,
		Size:            validation.Derived.ComputedSize,
		RiskPct:         p.RiskPct,
		Thesis:          p.Thesis,
		SetupTags:       append([]string(nil), p.SetupTags...),
		EntryValidation: EntryValidation{
			ScopeOK:         scope.OK,
			LimitsOK:        limits.OK,
			LimitsActivated: limits.Derived.Activated,
			RiskOK:          validation.OK,
			RRRatio:         validation.Derived.RRRatio,
			Warnings:        collectWarnings(scope.Warnings, limits.Warnings, validation.Warnings),
		},
		Management: Management{
			MoveStopEvents:          []MoveStopEvent{},
			PartialTakeProfitEvents: []PartialTakeProfitEvent{},
			Notes:                   []Note{},
		},
	}
	r.trades[t.TradeID] = t

	snapshot := t.clone()
	res.Event = r.emit(contracts.EventOpened, t.TradeID, submitPayload{
		Pair:             t.Pair,
		Direction:        t.Direction,
		ScopeValidation:  res.ScopeValidation,
		LimitsValidation: res.LimitsValidation,
		Validation:       res.Validation,
		Trade:            &snapshot,
		Decision:         r.submissionDecision(t.Pair, true, "", nil),
	})
	metrics.PaperSubmissions.WithLabelValues(StatusAccepted).Inc()
	r.log.Info().Str("trade_id", t.TradeID).Str("pair", t.Pair).Str("direction", string(t.Direction)).Msg("paper trade opened")

	res.OK = true
	res.Status = StatusAccepted
	res.TradeID = t.TradeID
	res.Trade = &snapshot
	res.Meta = r.meta()
	return res
}

func (r *Runtime) reject(res SubmitResult, reason string, violations []string, p contracts.TradeProposal) SubmitResult {
	pair := phase.NormalizePair(p.Pair)
	res.Reason = reason
	res.Violations = append([]string{}, violations...)
	res.Event = r.emit(contracts.EventRejected, "", submitPayload{
		Reason:           reason,
		Violations:       res.Violations,
		Pair:             pair,
		Direction:        p.Direction,
		ScopeValidation:  res.ScopeValidation,
		LimitsValidation: res.LimitsValidation,
		Validation:       res.Validation,
		Decision:         r.submissionDecision(pair, false, reason, res.Violations),
	})
	metrics.PaperSubmissions.WithLabelValues(StatusRejected).Inc()
	r.log.Info().Str("reason", reason).Strs("violations", res.Violations).Str("pair", pair).Msg("paper trade rejected")
	res.Meta = r.meta()
	return res
}

func (r *Runtime) submissionDecision(pair string, accepted bool, reason string, violations []string) contracts.DecisionRecord {
	return contracts.DecisionRecord{
		SchemaVersion: contracts.DecisionRecordSchemaVersion,
		DecisionID:    id.WithPrefix("dec"),
		Kind:          contracts.DecisionSubmission,
		CreatedAt:     r.now(),
		Pair:          pair,
		Accepted:      contracts.Bool(accepted),
		Reason:        reason,
		Violations:    violations,
	}
}

func collectWarnings(lists ...[]string) []string {
	out := []string{}
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
