package phase

import "github.com/rustyeddy/aion/contracts"

type ScopeResult struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
	Derived    Scope    `json:"derived"`
	Meta       Meta     `json:"meta"`
}

// ValidateScope checks the resolved pair, session, strategy tier and account
// mode against the phase constants. Each mismatch adds one violation.
func ValidateScope(p contracts.TradeProposal, req contracts.RequestMetadata) ScopeResult {
	s := ResolveScope(p, req)
	r := ScopeResult{
		Violations: []string{},
		Warnings:   []string{},
		Derived:    s,
		Meta:       Meta{Gate: "scope_progression", Phase: Name, RequestMetadata: req},
	}

	if s.Pair.Value != AllowedPair {
		r.Violations = append(r.Violations, CodePairLocked)
	}
	if s.Session.Value != string(AllowedSession) {
		r.Violations = append(r.Violations, CodeSessionLocked)
	}
	if s.StrategyTier.Value != string(AllowedStrategyTier) {
		r.Violations = append(r.Violations, CodeStrategyLocked)
	}
	if s.AccountMode.Value != string(RequiredAccountMode) {
		r.Violations = append(r.Violations, CodeRequiresPaperMode)
	}

	r.OK = len(r.Violations) == 0
	return r
}
