package phase

import (
	"strings"

	"github.com/rustyeddy/aion/contracts"
)

// LimitsOptions tunes activation of the initial-trade-limits gate.
type LimitsOptions struct {
	// StrictSignals applies the gate even when the caller supplied no phase
	// signals. The default keeps legacy callers working.
	StrictSignals bool
}

type LimitsDerived struct {
	Activated      bool     `json:"activated"`
	SignalsPresent []string `json:"signals_present"`

	TradesTaken         *int `json:"trades_taken"`
	MaxTradesPerSession int  `json:"max_trades_per_session"`

	AGradeOnly bool     `json:"a_grade_only"`
	SetupGrade Resolved `json:"setup_grade"`
	IsAGrade   bool     `json:"is_a_grade"`

	RedEventActive  bool     `json:"red_event_active"`
	RedEventSources []string `json:"red_event_sources"`

	EODDebriefRequired    bool   `json:"eod_debrief_required"`
	EODDebriefAck         bool   `json:"eod_debrief_ack"`
	EODDebriefAckSource   string `json:"eod_debrief_ack_source,omitempty"`
	ProposalEODAckIgnored bool   `json:"proposal_eod_ack_ignored"`
}

type LimitsResult struct {
	OK         bool          `json:"ok"`
	Violations []string      `json:"violations"`
	Warnings   []string      `json:"warnings"`
	Derived    LimitsDerived `json:"derived"`
	Meta       Meta          `json:"meta"`
}

// ValidateInitialTradeLimits enforces the session trade cap, A-grade-only
// entries, red-event stand-down and the end-of-day debrief acknowledgement.
//
// The gate only activates when the request carries phase signals (or the
// session counter is supplied), unless opts.StrictSignals is set.
func ValidateInitialTradeLimits(
	p contracts.TradeProposal,
	req contracts.RequestMetadata,
	session *contracts.SessionStats,
	account *contracts.AccountStats,
	opts LimitsOptions,
) LimitsResult {
	r := LimitsResult{
		Violations: []string{},
		Warnings:   []string{},
		Meta:       Meta{Gate: "initial_trade_limits", Phase: Name, RequestMetadata: req},
	}
	d := &r.Derived
	d.SignalsPresent = signalsPresent(req, session)
	d.Activated = opts.StrictSignals || len(d.SignalsPresent) > 0

	d.MaxTradesPerSession = MaxTradesPerSession
	if req.MaxTradesPerSession != nil {
		d.MaxTradesPerSession = *req.MaxTradesPerSession
	}
	d.AGradeOnly = RequireAGradeOnly
	if req.AGradeOnly != nil {
		d.AGradeOnly = *req.AGradeOnly
	}
	d.EODDebriefRequired = RequireEODDebriefFlag
	if req.EODDebriefRequired != nil {
		d.EODDebriefRequired = *req.EODDebriefRequired
	}
	if session != nil {
		d.TradesTaken = session.TradesTaken
	}
	d.SetupGrade = ResolveScope(p, req).SetupGrade
	d.IsAGrade = isTrue(req.IsAGrade) || aGrades[d.SetupGrade.Value]

	if isTrue(req.RedEventActive) {
		d.RedEventSources = append(d.RedEventSources, string(SourceRequestMetadata))
	}
	if account != nil && isTrue(account.RedEventActive) {
		d.RedEventSources = append(d.RedEventSources, "account_stats")
	}
	if p.Metadata != nil && isTrue(p.Metadata.RedEventActive) {
		d.RedEventSources = append(d.RedEventSources, string(SourceProposalMetadata))
	}
	d.RedEventActive = len(d.RedEventSources) > 0

	switch {
	case isTrue(req.EODDebriefAck):
		d.EODDebriefAck, d.EODDebriefAckSource = true, "request_metadata.eod_debrief_ack"
	case isTrue(req.EODDebriefAcknowledged):
		d.EODDebriefAck, d.EODDebriefAckSource = true, "request_metadata.eod_debrief_acknowledged"
	case account != nil && isTrue(account.EODDebriefAck):
		d.EODDebriefAck, d.EODDebriefAckSource = true, "account_stats.eod_debrief_ack"
	}
	if p.Metadata != nil && p.Metadata.EODDebriefAck != nil {
		d.ProposalEODAckIgnored = true
		r.Warnings = append(r.Warnings, WarnProposalEODIgnored)
	}

	if !d.Activated {
		r.Warnings = append(r.Warnings, WarnLimitsNotActivated)
		r.OK = true
		return r
	}

	if d.TradesTaken == nil {
		r.Warnings = append(r.Warnings, WarnSessionCountMissing)
	} else if *d.TradesTaken >= d.MaxTradesPerSession {
		r.Violations = append(r.Violations, CodeSessionTradeLimit)
	}
	if d.AGradeOnly && !d.IsAGrade {
		r.Violations = append(r.Violations, CodeAGradeOnlyRequired)
	}
	if BlockRedEvents && d.RedEventActive {
		r.Violations = append(r.Violations, CodeRedEventStandDown)
	}
	if d.EODDebriefRequired && !d.EODDebriefAck {
		r.Violations = append(r.Violations, CodeEODDebriefRequired)
	}

	r.OK = len(r.Violations) == 0
	return r
}

func signalsPresent(req contracts.RequestMetadata, session *contracts.SessionStats) []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(strings.TrimSpace(req.SetupGrade) != "", "setup_grade")
	add(strings.TrimSpace(req.Grade) != "", "grade")
	add(req.IsAGrade != nil, "is_a_grade")
	add(req.RedEventActive != nil, "red_event_active")
	add(req.EODDebriefAck != nil, "eod_debrief_ack")
	add(req.EODDebriefAcknowledged != nil, "eod_debrief_acknowledged")
	add(req.EODDebriefRequired != nil, "eod_debrief_required")
	add(req.AGradeOnly != nil, "a_grade_only")
	add(req.MaxTradesPerSession != nil, "max_trades_per_session")
	add(session != nil && session.TradesTaken != nil, "session_stats.trades_taken")
	return out
}

func isTrue(b *bool) bool { return b != nil && *b }
