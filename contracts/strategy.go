package contracts

import (
	"errors"
	"fmt"
	"strings"
)

const StrategySpecSchemaVersion = "aion.strategy_spec.v1"

// StrategySpec is a static catalog entry for one strategy tier.
type StrategySpec struct {
	SchemaVersion string       `json:"schema_version" yaml:"schema_version"`
	Tier          StrategyTier `json:"tier" yaml:"tier"`
	Name          string       `json:"name" yaml:"name"`
	Horizon       string       `json:"horizon" yaml:"horizon"`
	Timeframes    []string     `json:"timeframes" yaml:"timeframes"`
	DefaultMinRR  float64      `json:"default_min_rr" yaml:"default_min_rr"`
	PhaseAllowed  bool         `json:"phase_allowed" yaml:"phase_allowed"`
	Description   string       `json:"description" yaml:"description"`
}

func (s StrategySpec) Validate() error {
	var errs []error
	if s.SchemaVersion != StrategySpecSchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", StrategySpecSchemaVersion, s.SchemaVersion))
	}
	if !s.Tier.Valid() {
		errs = append(errs, fmt.Errorf("tier %q is not recognised", s.Tier))
	}
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !(s.DefaultMinRR > 0) {
		errs = append(errs, errors.New("default_min_rr must be > 0"))
	}
	return errors.Join(errs...)
}

var strategyCatalog = []StrategySpec{
	{
		SchemaVersion: StrategySpecSchemaVersion,
		Tier:          Tier1OrderflowSniping,
		Name:          "Order-flow sniping",
		Horizon:       "minutes",
		Timeframes:    []string{"M1", "M5"},
		DefaultMinRR:  1.5,
		Description:   "Footprint and liquidity-sweep entries around session opens.",
	},
	{
		SchemaVersion: StrategySpecSchemaVersion,
		Tier:          Tier2MomentumORB,
		Name:          "Momentum opening-range breakout",
		Horizon:       "minutes to hours",
		Timeframes:    []string{"M5", "M15"},
		DefaultMinRR:  1.5,
		Description:   "Breakouts of the first session range with momentum confirmation.",
	},
	{
		SchemaVersion: StrategySpecSchemaVersion,
		Tier:          Tier3SMCIntraday,
		Name:          "SMC intraday",
		Horizon:       "hours",
		Timeframes:    []string{"M15", "H1", "H4"},
		DefaultMinRR:  2.0,
		PhaseAllowed:  true,
		Description:   "Structure breaks into order blocks and fair-value gaps within one session.",
	},
	{
		SchemaVersion: StrategySpecSchemaVersion,
		Tier:          Tier4Swing,
		Name:          "Swing",
		Horizon:       "days",
		Timeframes:    []string{"H4", "D1"},
		DefaultMinRR:  2.5,
		Description:   "Multi-day continuation setups from higher-timeframe levels.",
	},
	{
		SchemaVersion: StrategySpecSchemaVersion,
		Tier:          Tier5MacroPositioning,
		Name:          "Macro positioning",
		Horizon:       "weeks",
		Timeframes:    []string{"D1", "W1"},
		DefaultMinRR:  3.0,
		Description:   "Rate-differential and risk-regime driven positions.",
	},
}

// StrategyCatalog returns a copy of the catalog in tier order.
func StrategyCatalog() []StrategySpec {
	out := make([]StrategySpec, len(strategyCatalog))
	for i, s := range strategyCatalog {
		s.Timeframes = append([]string(nil), s.Timeframes...)
		out[i] = s
	}
	return out
}

// LookupStrategy returns the catalog entry for tier.
func LookupStrategy(tier StrategyTier) (StrategySpec, bool) {
	for _, s := range StrategyCatalog() {
		if s.Tier == tier {
			return s, true
		}
	}
	return StrategySpec{}, false
}
