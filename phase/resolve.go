package phase

import (
	"strings"

	"github.com/rustyeddy/aion/contracts"
)

// Source names where a resolved scope value came from.
type Source string

const (
	SourceProposal         Source = "proposal"
	SourceProposalMetadata Source = "proposal_metadata"
	SourceRequestMetadata  Source = "request_metadata"
	SourceNone             Source = "none"
)

type Resolved struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Scope holds the scope fields a submission is judged on, resolved with one
// precedence table:
//
//	field          1st                2nd                       3rd
//	pair           proposal.pair      proposal.metadata.pair    request.pair
//	session        proposal.session   proposal.metadata.session request.session
//	strategy_tier  proposal.tier      proposal.metadata.tier    request.strategy_tier
//	account_mode   proposal.mode      proposal.metadata.mode    request.account_mode
//	setup_grade    -                  proposal.metadata.grade   request.setup_grade, request.grade
//
// No other locations are consulted.
type Scope struct {
	Pair         Resolved `json:"pair"`
	Session      Resolved `json:"session"`
	StrategyTier Resolved `json:"strategy_tier"`
	AccountMode  Resolved `json:"account_mode"`
	SetupGrade   Resolved `json:"setup_grade"`
}

// ResolveScope applies the precedence table and normalises each value.
func ResolveScope(p contracts.TradeProposal, req contracts.RequestMetadata) Scope {
	md := contracts.ProposalMetadata{}
	if p.Metadata != nil {
		md = *p.Metadata
	}

	s := Scope{
		Pair:         first(string(p.Pair), md.Pair, req.Pair),
		Session:      first(string(p.Session), md.Session, req.Session),
		StrategyTier: first(string(p.StrategyTier), md.StrategyTier, req.StrategyTier),
		AccountMode:  first(string(p.AccountMode), md.AccountMode, req.AccountMode),
		SetupGrade:   first("", md.SetupGrade, req.SetupGrade, req.Grade),
	}
	s.Pair.Value = NormalizePair(s.Pair.Value)
	s.Session.Value = strings.ToLower(s.Session.Value)
	s.StrategyTier.Value = strings.ToLower(s.StrategyTier.Value)
	s.AccountMode.Value = strings.ToLower(s.AccountMode.Value)
	s.SetupGrade.Value = strings.ToUpper(s.SetupGrade.Value)
	return s
}

// first picks the first non-blank candidate. Index 0 is the proposal, 1 the
// proposal metadata, and anything after is request metadata.
func first(candidates ...string) Resolved {
	for i, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		switch i {
		case 0:
			return Resolved{Value: c, Source: SourceProposal}
		case 1:
			return Resolved{Value: c, Source: SourceProposalMetadata}
		default:
			return Resolved{Value: c, Source: SourceRequestMetadata}
		}
	}
	return Resolved{Source: SourceNone}
}
