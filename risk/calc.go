package risk

import (
	"strings"

	"github.com/rustyeddy/aion/contracts"
	"github.com/shopspring/decimal"
)

const (
	pipSizeDefault = 0.0001
	pipSizeJPY     = 0.01
)

// PipSize returns the pip size for a pair: 0.01 when JPY is the quote
// currency, 0.0001 otherwise.
func PipSize(pair string) float64 {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if strings.HasSuffix(p, "JPY") {
		return pipSizeJPY
	}
	return pipSizeDefault
}

// Distances returns the direction-aware risk and reward distances in price
// terms. BUY risks entry-stop and targets tp-entry; SELL is the mirror image.
func Distances(dir contracts.Direction, entry, stop, takeProfit float64) (risk, reward float64) {
	switch dir {
	case contracts.Buy:
		return entry - stop, takeProfit - entry
	case contracts.Sell:
		return stop - entry, entry - takeProfit
	}
	return 0, 0
}

// RR is reward/risk for the given direction, or 0 when the risk distance is
// not positive.
func RR(dir contracts.Direction, entry, stop, takeProfit float64) float64 {
	risk, reward := Distances(dir, entry, stop, takeProfit)
	if risk <= 0 {
		return 0
	}
	return Round(reward/risk, 4)
}

// Round rounds half away from zero to the given number of places using
// decimal arithmetic, so 0.011/0.005 reports as 2.2 rather than
// 2.2000000000000024.
func Round(x float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}
