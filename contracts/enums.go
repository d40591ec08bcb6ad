// Package contracts holds the declarative records exchanged between the
// risk gate, the phase gate, the paper runtime and the decision pipeline.
//
// Every record carries a pinned schema_version and a Validate method. The
// enumerated types below are closed sets; Valid reports membership.
package contracts

import "strings"

type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
	BiasAvoid   Bias = "AVOID"
)

func (b Bias) Valid() bool {
	switch b {
	case BiasBullish, BiasBearish, BiasNeutral, BiasAvoid:
		return true
	}
	return false
}

// ParseBias normalizes case and whitespace. ok is false for values outside
// the closed set.
func ParseBias(s string) (Bias, bool) {
	b := Bias(strings.ToUpper(strings.TrimSpace(s)))
	return b, b.Valid()
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

func ParseConfidence(s string) (Confidence, bool) {
	c := Confidence(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// StepUp returns the next level up, saturating at HIGH.
func (c Confidence) StepUp() Confidence {
	switch c {
	case ConfidenceLow:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceHigh
	}
	return c
}

// StepDown returns the next level down, saturating at LOW.
func (c Confidence) StepDown() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	}
	return c
}

type Session string

const (
	SessionPreMarket Session = "pre_market"
	SessionLondon    Session = "london"
	SessionMidLondon Session = "mid_london"
	SessionNewYork   Session = "new_york"
	SessionAsia      Session = "asia"
	SessionEOD       Session = "eod"
)

// Sessions lists the checkpoint/session keys in schedule order.
var Sessions = []Session{
	SessionPreMarket, SessionLondon, SessionMidLondon, SessionNewYork, SessionAsia, SessionEOD,
}

func (s Session) Valid() bool {
	for _, v := range Sessions {
		if s == v {
			return true
		}
	}
	return false
}

func ParseSession(s string) (Session, bool) {
	v := Session(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

type RiskEnvironment string

const (
	RiskOn      RiskEnvironment = "RISK_ON"
	RiskOff     RiskEnvironment = "RISK_OFF"
	RiskMixed   RiskEnvironment = "MIXED"
	RiskUnknown RiskEnvironment = "UNKNOWN"
)

func (r RiskEnvironment) Valid() bool {
	switch r {
	case RiskOn, RiskOff, RiskMixed, RiskUnknown:
		return true
	}
	return false
}

func ParseRiskEnvironment(s string) (RiskEnvironment, bool) {
	r := RiskEnvironment(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

type Agreement string

const (
	AgreementAgree       Agreement = "agree"
	AgreementDisagree    Agreement = "disagree"
	AgreementPartial     Agreement = "partial"
	AgreementUnavailable Agreement = "unavailable"
)

func (a Agreement) Valid() bool {
	switch a {
	case AgreementAgree, AgreementDisagree, AgreementPartial, AgreementUnavailable:
		return true
	}
	return false
}

type StrategyTier string

const (
	Tier1OrderflowSniping StrategyTier = "tier1_orderflow_sniping"
	Tier2MomentumORB      StrategyTier = "tier2_momentum_orb"
	Tier3SMCIntraday      StrategyTier = "tier3_smc_intraday"
	Tier4Swing            StrategyTier = "tier4_swing"
	Tier5MacroPositioning StrategyTier = "tier5_macro_positioning"
)

func (t StrategyTier) Valid() bool {
	switch t {
	case Tier1OrderflowSniping, Tier2MomentumORB, Tier3SMCIntraday, Tier4Swing, Tier5MacroPositioning:
		return true
	}
	return false
}

func ParseStrategyTier(s string) (StrategyTier, bool) {
	t := StrategyTier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

func (d Direction) Valid() bool { return d == Buy || d == Sell }

func ParseDirection(s string) (Direction, bool) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	return d, d.Valid()
}

type AccountMode string

const (
	ModePaper AccountMode = "paper"
	ModeSim   AccountMode = "sim"
	ModeLive  AccountMode = "live"
)

func (m AccountMode) Valid() bool {
	switch m {
	case ModePaper, ModeSim, ModeLive:
		return true
	}
	return false
}

func ParseAccountMode(s string) (AccountMode, bool) {
	m := AccountMode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

func (s TradeStatus) Valid() bool { return s == StatusOpen || s == StatusClosed }

func ParseTradeStatus(s string) (TradeStatus, bool) {
	v := TradeStatus(strings.ToUpper(strings.TrimSpace(s)))
	return v, v.Valid()
}

type EventType string

const (
	EventOpened         EventType = "paper_trade_opened"
	EventManaged        EventType = "paper_trade_managed"
	EventManageRejected EventType = "paper_trade_manage_rejected"
	EventClosed         EventType = "paper_trade_closed"
	EventCloseRejected  EventType = "paper_trade_close_rejected"
	EventRejected       EventType = "paper_trade_rejected"
)

func (e EventType) Valid() bool {
	switch e {
	case EventOpened, EventManaged, EventManageRejected, EventClosed, EventCloseRejected, EventRejected:
		return true
	}
	return false
}
