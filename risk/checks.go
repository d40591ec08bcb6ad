package risk

import (
	"math"
	"strings"

	"github.com/rustyeddy/aion/contracts"
)

// Evaluate applies the hard risk policy to a proposal plus the optional
// session and account counters. It is deterministic and side-effect free.
func Evaluate(
	p contracts.TradeProposal,
	pol contracts.TradingRiskPolicy,
	session *contracts.SessionStats,
	account *contracts.AccountStats,
) contracts.RiskValidationResult {
	r := contracts.NewRiskValidationResult()

	if err := p.ValidateShape(); err != nil {
		r.Violate(contracts.CodeProposalInvalid + ":" + flatten(err))
	}
	if err := p.ValidatePrices(); err != nil {
		r.Violate(contracts.CodeProposalInvalid + ":" + flatten(err))
	}
	if err := pol.Validate(); err != nil {
		r.Violate(contracts.CodePolicyInvalid + ":" + flatten(err))
	}
	for _, w := range pol.Warnings() {
		r.Warn(w)
	}

	// Paper-only gate
	if pol.PaperOnly && p.AccountMode == contracts.ModeLive {
		r.Violate(contracts.CodeLiveTradingBlocked)
	}

	// Stop at entry
	if pol.RequireStopLossAtEntry && p.StopLoss == nil {
		r.Violate(contracts.CodeStopLossRequired)
	}

	// Position size
	size, err := PositionSize(p.AccountEquity, p.RiskPct, p.StopPips, p.PipValue)
	if err != nil {
		r.Violate(contracts.CodePositionSizeFailed + ":" + err.Error())
	} else {
		r.Derived.ComputedSize = &size
		if p.Size != nil && math.Abs(*p.Size-size) > 1e-9 {
			r.Warn("proposal_size_differs_from_computed")
		}
	}

	// Per-trade cap
	if p.RiskPct > pol.MaxRiskPerTradePct {
		r.Violate(contracts.CodeRiskPerTradeExceeds)
	}

	// RR
	stop := 0.0
	if p.StopLoss != nil {
		stop = *p.StopLoss
	}
	riskDist, rewardDist := Distances(p.Direction, p.Entry, stop, p.TakeProfit)
	r.Derived.RiskDistance = Round(riskDist, 8)
	r.Derived.RewardDistance = Round(rewardDist, 8)
	r.Derived.RRRatio = RR(p.Direction, p.Entry, stop, p.TakeProfit)
	if r.Derived.RRRatio < pol.MinRR {
		r.Violate(contracts.CodeRRBelowMin)
	} else if r.Derived.RRRatio < pol.PreferredRR {
		r.Warn(contracts.CodeRRBelowPreferred)
	}

	// Session losers
	if session != nil && session.LosingTrades >= pol.MaxLosingTradesPerSession {
		r.Violate(contracts.CodeSessionMaxLosingTrades)
	}

	// Day / week / drawdown
	var acct contracts.AccountStats
	if account != nil {
		acct = *account
	}
	r.Derived.ProjectedDayRiskUsedPct = Round(acct.DayRiskUsedPct+p.RiskPct, 6)
	r.Derived.ProjectedWeekRiskUsedPct = Round(acct.WeekRiskUsedPct+p.RiskPct, 6)
	r.Derived.DrawdownPct = acct.DrawdownPct
	if r.Derived.ProjectedDayRiskUsedPct > pol.MaxRiskPerDayPct {
		r.Violate(contracts.CodeMaxDailyRiskExceeded)
	}
	if r.Derived.ProjectedWeekRiskUsedPct > pol.MaxRiskPerWeekPct {
		r.Violate(contracts.CodeMaxWeeklyRiskExceeded)
	}
	if acct.DrawdownPct >= pol.MaxDrawdownStopPct {
		r.Violate(contracts.CodeMaxDrawdownStopTriggered)
	}

	r.Finalize()
	return r
}

func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
