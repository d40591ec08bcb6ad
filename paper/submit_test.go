package paper

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/metrics"
	"github.com/rustyeddy/aion/phase"
)

func TestSubmitAcceptsValidProposal(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	res := r.Submit(eurusdBuy())

	require.True(t, res.OK)
	assert.Equal(t, StatusAccepted, res.Status)
	assert.Empty(t, res.Reason)
	require.NotNil(t, res.Validation)
	assert.InDelta(t, 2.2, res.Validation.Derived.RRRatio, 1e-9)
	assert.Equal(t, contracts.EventOpened, res.Event.EventType)
	assert.Equal(t, res.TradeID, res.Event.TradeID)

	tr := res.Trade
	require.NotNil(t, tr)
	assert.Equal(t, contracts.StatusOpen, tr.Status)
	assert.Equal(t, "EUR/USD", tr.Pair)
	assert.Equal(t, "london", tr.Session)
	assert.Equal(t, "tier3_smc_intraday", tr.StrategyTier)
	assert.Equal(t, "A", tr.SetupGrade)
	assert.InDelta(t, 1.0950, tr.StopLoss, 1e-12)
	require.NotNil(t, tr.Size)
	assert.InDelta(t, 0.2, *tr.Size, 1e-9)
	assert.Empty(t, tr.Management.MoveStopEvents)
	assert.Empty(t, tr.Management.PartialTakeProfitEvents)
	assert.Empty(t, tr.Management.Notes)
	assert.Nil(t, tr.Close)
	assert.Nil(t, tr.ClosedTS)
	assert.True(t, tr.EntryValidation.LimitsActivated)

	got, err := r.Get(res.TradeID)
	require.NoError(t, err)
	assert.Equal(t, res.TradeID, got.TradeID)

	assert.True(t, gjson.GetBytes(res.Event.Payload, "decision.accepted").Bool())
}

func TestSubmitRiskCapRejected(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	req := eurusdBuy()
	req.Proposal.RiskPct = 2.5

	res := r.Submit(req)
	assert.False(t, res.OK)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, ReasonRiskFailed, res.Reason)
	assert.Contains(t, res.Violations, contracts.CodeRiskPerTradeExceeds)
	require.NotNil(t, res.ScopeValidation)
	require.NotNil(t, res.LimitsValidation)
	require.NotNil(t, res.Validation)

	assert.NotContains(t, eventTypes(r.Events("")), contracts.EventOpened)
	assert.Equal(t, []contracts.EventType{contracts.EventRejected}, eventTypes(r.Events("")))

	trades, err := r.List("")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSubmitScopePairRejected(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	req := eurusdBuy()
	req.Proposal.Pair = "GBP/USD"

	res := r.Submit(req)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonScopeFailed, res.Reason)
	assert.Contains(t, res.Violations, phase.CodePairLocked)
	assert.Nil(t, res.LimitsValidation, "later gates must not run")
	assert.Nil(t, res.Validation)
	assert.Equal(t, contracts.EventRejected, res.Event.EventType)
	assert.Equal(t, "GBP/USD", gjson.GetBytes(res.Event.Payload, "pair").String())
	assert.False(t, gjson.GetBytes(res.Event.Payload, "decision.accepted").Bool())
}

func TestSubmitLimitsRejected(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	req := eurusdBuy()
	req.Metadata.SetupGrade = "B"
	req.Metadata.RedEventActive = contracts.Bool(true)

	res := r.Submit(req)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonLimitsFailed, res.Reason)
	assert.Equal(t, []string{phase.CodeAGradeOnlyRequired, phase.CodeRedEventStandDown}, res.Violations)
	require.NotNil(t, res.ScopeValidation)
	require.NotNil(t, res.LimitsValidation)
	assert.Nil(t, res.Validation)
}

func TestSubmitStrictSignals(t *testing.T) {
	t.Parallel()

	req := eurusdBuy()
	req.Metadata = contracts.RequestMetadata{Session: "london"}

	lenient := newTestRuntime()
	assert.True(t, lenient.Submit(req).OK)

	strict := newTestRuntime(WithLimitsOptions(phase.LimitsOptions{StrictSignals: true}))
	res := strict.Submit(req)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonLimitsFailed, res.Reason)
}

func TestSubmitRequiresStopEvenWhenPolicyDoesNot(t *testing.T) {
	t.Parallel()

	pol := contracts.DefaultPolicy()
	pol.RequireStopLossAtEntry = false

	r := newTestRuntime()
	req := eurusdBuy()
	req.Proposal.StopLoss = nil
	req.Policy = &pol

	res := r.Submit(req)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonRiskFailed, res.Reason)
	assert.Contains(t, res.Violations, contracts.CodeStopLossRequired)
}

func TestSubmitRejectsNonPositivePrices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*contracts.TradeProposal)
		errMsg string
	}{
		{"zero entry sell", func(p *contracts.TradeProposal) {
			p.Direction = contracts.Sell
			p.Entry = 0
			p.StopLoss = contracts.Float(0.005)
			p.TakeProfit = -0.011
		}, "entry must be > 0"},
		{"negative take profit", func(p *contracts.TradeProposal) { p.TakeProfit = -1.2 }, "take_profit must be > 0"},
		{"zero stop", func(p *contracts.TradeProposal) { p.StopLoss = contracts.Float(0) }, "stop_loss must be > 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRuntime()
			req := eurusdBuy()
			tt.mutate(&req.Proposal)

			res := r.Submit(req)
			assert.False(t, res.OK)
			assert.Equal(t, ReasonRiskFailed, res.Reason)
			require.NotNil(t, res.Validation)
			found := false
			for _, v := range res.Validation.Violations {
				if strings.HasPrefix(v, contracts.CodeProposalInvalid+":") && strings.Contains(v, tt.errMsg) {
					found = true
				}
			}
			assert.True(t, found, "violations: %v", res.Validation.Violations)

			trades, err := r.List("")
			require.NoError(t, err)
			assert.Empty(t, trades)
		})
	}
}

func TestSubmitRuntimePolicyDefault(t *testing.T) {
	t.Parallel()

	pol := contracts.DefaultPolicy()
	pol.MinRR = 3.0
	r := newTestRuntime(WithPolicy(pol))

	res := r.Submit(eurusdBuy())
	assert.False(t, res.OK)
	assert.Contains(t, res.Violations, contracts.CodeRRBelowMin)

	// A per-request policy wins over the runtime default.
	req := eurusdBuy()
	def := contracts.DefaultPolicy()
	req.Policy = &def
	assert.True(t, r.Submit(req).OK)
}

func TestSubmitRepeatedInputAdvancesConsistently(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	for i := 0; i < 3; i++ {
		assert.True(t, r.Submit(eurusdBuy()).OK)
	}
	bad := eurusdBuy()
	bad.Proposal.RiskPct = 2.5
	for i := 0; i < 3; i++ {
		assert.False(t, r.Submit(bad).OK)
	}

	trades, err := r.List("")
	require.NoError(t, err)
	assert.Len(t, trades, 3)
	assert.Len(t, r.Events(""), 6)
}

func TestSubmitMetrics(t *testing.T) {
	accepted := metrics.PaperSubmissions.WithLabelValues(StatusAccepted)
	rejected := metrics.PaperSubmissions.WithLabelValues(StatusRejected)
	a0, r0 := testutil.ToFloat64(accepted), testutil.ToFloat64(rejected)

	r := newTestRuntime()
	r.Submit(eurusdBuy())
	bad := eurusdBuy()
	bad.Proposal.Pair = "USD/JPY"
	r.Submit(bad)

	assert.Equal(t, a0+1, testutil.ToFloat64(accepted))
	assert.Equal(t, r0+1, testutil.ToFloat64(rejected))
}

func TestFailClosedConvertsPanic(t *testing.T) {
	t.Parallel()

	res := failClosed(zerolog.Nop(), "risk",
		func() contracts.RiskValidationResult { panic("boom") },
		func(code string) contracts.RiskValidationResult {
			v := contracts.NewRiskValidationResult()
			v.Violate(code)
			v.Finalize()
			return v
		})
	assert.False(t, res.OK)
	assert.Equal(t, []string{"risk_internal_error"}, res.Violations)
}

func TestListOrderAndFilter(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	first := openTrade(t, r, eurusdBuy())
	second := openTrade(t, r, eurusdSell())
	require.True(t, r.Close(first.TradeID, CloseRequest{ClosePrice: 1.1050, CloseReason: "manual"}).OK)

	all, err := r.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.TradeID, all[0].TradeID)
	assert.Equal(t, second.TradeID, all[1].TradeID)

	open, err := r.List("open")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.TradeID, open[0].TradeID)

	closed, err := r.List(" Closed ")
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, first.TradeID, closed[0].TradeID)

	_, err = r.List("pending")
	assert.Error(t, err)
}

func TestGetUnknownTrade(t *testing.T) {
	t.Parallel()

	_, err := newTestRuntime().Get("nope")
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := newTestRuntime()
	tr := openTrade(t, r, eurusdBuy())

	got, err := r.Get(tr.TradeID)
	require.NoError(t, err)
	got.StopLoss = 0
	got.Management.Notes = append(got.Management.Notes, Note{Text: "x"})

	again, err := r.Get(tr.TradeID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0950, again.StopLoss, 1e-12)
	assert.Empty(t, again.Management.Notes)
}
