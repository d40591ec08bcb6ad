// Package phase enforces the current staged-rollout scope: which pair,
// session, strategy tier and account mode may trade, and the limits that
// apply to the first trades of the phase.
//
// The constants below are the contract for Phase 2. Changing any of them is
// a new phase, not a tweak.
package phase

import "github.com/rustyeddy/aion/contracts"

const (
	Name = "phase2"

	AllowedPair         = "EUR/USD"
	AllowedSession      = contracts.SessionLondon
	AllowedStrategyTier = contracts.Tier3SMCIntraday
	RequiredAccountMode = contracts.ModePaper

	MaxTradesPerSession   = 2
	RequireAGradeOnly     = true
	BlockRedEvents        = true
	RequireEODDebriefFlag = true
)

// Scope violation codes.
const (
	CodePairLocked          = "phase2_scope_pair_locked"
	CodeSessionLocked       = "phase2_scope_session_locked"
	CodeStrategyLocked      = "phase2_scope_strategy_locked"
	CodeRequiresPaperMode   = "phase2_progression_requires_paper_mode"
	CodeSessionTradeLimit   = "phase2_session_trade_limit_reached"
	CodeAGradeOnlyRequired  = "phase2_a_grade_only_required"
	CodeRedEventStandDown   = "phase2_red_event_stand_down"
	CodeEODDebriefRequired  = "phase2_eod_debrief_ack_required"
	WarnLimitsNotActivated  = "phase2_limits_not_activated_no_phase_signals"
	WarnProposalEODIgnored  = "phase2_proposal_eod_ack_ignored"
	WarnSessionCountMissing = "phase2_session_trade_count_not_supplied"
)

var aGrades = map[string]bool{"A": true, "A+": true, "A1": true}

// Meta is echoed on every gate result for audit.
type Meta struct {
	Gate            string                    `json:"gate"`
	Phase           string                    `json:"phase"`
	RequestMetadata contracts.RequestMetadata `json:"request_metadata"`
}
