package risk

import (
	"testing"

	"github.com/rustyeddy/aion/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pair string
		want float64
	}{
		{"EUR/USD", 0.0001},
		{"USD/JPY", 0.01},
		{"usdjpy", 0.01},
		{"GBP/USD", 0.0001},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.pair, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, PipSize(tt.pair), 1e-12)
		})
	}
}

func TestPositionSize(t *testing.T) {
	t.Parallel()

	got, err := PositionSize(10000, 1.0, 50, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-12)

	got, err = PositionSize(5000, 2.0, 25, 9.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.4396, got, 1e-9)
}

func TestPositionSizeRejectsNonPositiveInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		equity, risk, stop, pipVal float64
		want                       error
	}{
		{"equity", 0, 1, 50, 10, ErrEquityNonPositive},
		{"risk", 10000, -1, 50, 10, ErrRiskPctNonPositive},
		{"stop pips", 10000, 1, 0, 10, ErrStopPipsNonPositive},
		{"pip value", 10000, 1, 50, 0, ErrPipValueNonPositive},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := PositionSize(tt.equity, tt.risk, tt.stop, tt.pipVal)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRRDirectionAware(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.2, RR(contracts.Buy, 1.1000, 1.0950, 1.1110))
	assert.Equal(t, 2.0, RR(contracts.Sell, 1.1000, 1.1050, 1.0900))

	// Stop on the wrong side means no defined risk.
	assert.Equal(t, 0.0, RR(contracts.Buy, 1.1000, 1.1050, 1.1200))
	assert.Equal(t, 0.0, RR(contracts.Sell, 1.1000, 1.0950, 1.0900))
	assert.Equal(t, 0.0, RR("FLAT", 1.1000, 1.0950, 1.1100))
}

func TestEffectivePolicy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, contracts.DefaultPolicy(), EffectivePolicy(nil))

	custom := contracts.DefaultPolicy()
	custom.SchemaVersion = ""
	custom.MaxRiskPerTradePct = 2
	eff := EffectivePolicy(&custom)
	assert.Equal(t, contracts.PolicySchemaVersion, eff.SchemaVersion)
	assert.Equal(t, 2.0, eff.MaxRiskPerTradePct)
}
