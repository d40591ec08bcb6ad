package paper

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/aion/contracts"
)

// testClock ticks one second per call.
func testClock() func() time.Time {
	base := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newTestRuntime(opts ...Option) *Runtime {
	base := []Option{WithLogger(zerolog.Nop()), WithClock(testClock())}
	return New(append(base, opts...)...)
}

func eurusdBuy() SubmitRequest {
	return SubmitRequest{
		Proposal: contracts.TradeProposal{
			SchemaVersion: contracts.ProposalSchemaVersion,
			Pair:          "EUR/USD",
			StrategyTier:  contracts.Tier3SMCIntraday,
			Direction:     contracts.Buy,
			AccountMode:   contracts.ModePaper,
			Entry:         1.1000,
			StopLoss:      contracts.Float(1.0950),
			TakeProfit:    1.1110,
			AccountEquity: 10000,
			RiskPct:       1.0,
			PipValue:      10.0,
			StopPips:      50,
		},
		Metadata: contracts.RequestMetadata{
			Session:       "london",
			SetupGrade:    "A",
			EODDebriefAck: contracts.Bool(true),
		},
	}
}

func eurusdSell() SubmitRequest {
	req := eurusdBuy()
	req.Proposal.Direction = contracts.Sell
	req.Proposal.StopLoss = contracts.Float(1.1050)
	req.Proposal.TakeProfit = 1.0890
	return req
}

func openTrade(t *testing.T, r *Runtime, req SubmitRequest) Trade {
	t.Helper()
	res := r.Submit(req)
	require.True(t, res.OK, "submit rejected: %s %v", res.Reason, res.Violations)
	require.NotNil(t, res.Trade)
	return *res.Trade
}

func eventTypes(evs []Event) []contracts.EventType {
	out := make([]contracts.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.EventType)
	}
	return out
}
