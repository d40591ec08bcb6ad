package risk

import (
	"errors"
	"math"
)

// Detail strings carried after "position_size_calculation_failed:".
var (
	ErrEquityNonPositive   = errors.New("account_equity_non_positive")
	ErrRiskPctNonPositive  = errors.New("risk_pct_non_positive")
	ErrStopPipsNonPositive = errors.New("stop_pips_non_positive")
	ErrPipValueNonPositive = errors.New("pip_value_non_positive")
)

// PositionSize computes size = (equity * riskPct/100) / (stopPips * pipValue).
// riskPct is whole percent. The result is rounded to four places.
func PositionSize(equity, riskPct, stopPips, pipValue float64) (float64, error) {
	switch {
	case !positive(equity):
		return 0, ErrEquityNonPositive
	case !positive(riskPct):
		return 0, ErrRiskPctNonPositive
	case !positive(stopPips):
		return 0, ErrStopPipsNonPositive
	case !positive(pipValue):
		return 0, ErrPipValueNonPositive
	}
	riskAmount := equity * riskPct / 100
	return Round(riskAmount/(stopPips*pipValue), 4), nil
}

// RiskAmount is the account-currency amount put at risk.
func RiskAmount(equity, riskPct float64) float64 {
	return equity * riskPct / 100
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
