package risk

import "github.com/rustyeddy/aion/contracts"

// EffectivePolicy returns override when supplied, else the Phase 2 default.
// A supplied policy with an empty schema tag inherits the current tag so
// that hand-built policies in tests and config files stay terse.
func EffectivePolicy(override *contracts.TradingRiskPolicy) contracts.TradingRiskPolicy {
	if override == nil {
		return contracts.DefaultPolicy()
	}
	p := *override
	if p.SchemaVersion == "" {
		p.SchemaVersion = contracts.PolicySchemaVersion
	}
	return p
}
