package phase

import (
	"testing"

	"github.com/rustyeddy/aion/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposal() contracts.TradeProposal {
	return contracts.TradeProposal{
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
	}
}

func phaseRequest() contracts.RequestMetadata {
	return contracts.RequestMetadata{
		Session:       "london",
		SetupGrade:    "A",
		EODDebriefAck: contracts.Bool(true),
	}
}

func TestNormalizePair(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"eurusd":   "EUR/USD",
		"EUR_USD":  "EUR/USD",
		"eur-usd":  "EUR/USD",
		" EUR/USD": "EUR/USD",
		"usdjpy":   "USD/JPY",
		"XAUUSD1":  "XAUUSD1",
		"":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePair(in), in)
	}
}

func TestResolveScopePrecedence(t *testing.T) {
	t.Parallel()

	p := proposal()
	p.Metadata = &contracts.ProposalMetadata{Session: "asia", SetupGrade: "b"}
	req := contracts.RequestMetadata{Session: "london", SetupGrade: "A", Pair: "GBPUSD"}

	s := ResolveScope(p, req)
	assert.Equal(t, Resolved{Value: "EUR/USD", Source: SourceProposal}, s.Pair)
	assert.Equal(t, Resolved{Value: "asia", Source: SourceProposalMetadata}, s.Session)
	assert.Equal(t, Resolved{Value: "B", Source: SourceProposalMetadata}, s.SetupGrade)

	p.Metadata = nil
	s = ResolveScope(p, req)
	assert.Equal(t, Resolved{Value: "london", Source: SourceRequestMetadata}, s.Session)
	assert.Equal(t, Resolved{Value: "A", Source: SourceRequestMetadata}, s.SetupGrade)

	s = ResolveScope(p, contracts.RequestMetadata{})
	assert.Equal(t, Resolved{Source: SourceNone}, s.Session)
}

func TestResolveScopeGradeFallsBackToGrade(t *testing.T) {
	t.Parallel()

	s := ResolveScope(proposal(), contracts.RequestMetadata{Grade: "a+"})
	assert.Equal(t, "A+", s.SetupGrade.Value)
}

func TestValidateScopeAccepts(t *testing.T) {
	t.Parallel()

	r := ValidateScope(proposal(), phaseRequest())
	assert.True(t, r.OK, r.Violations)
	assert.Empty(t, r.Violations)
	assert.Equal(t, "scope_progression", r.Meta.Gate)
	assert.Equal(t, "A", r.Meta.RequestMetadata.SetupGrade)
}

func TestValidateScopeViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*contracts.TradeProposal, *contracts.RequestMetadata)
		want   []string
	}{
		{
			name:   "pair",
			mutate: func(p *contracts.TradeProposal, _ *contracts.RequestMetadata) { p.Pair = "GBP/USD" },
			want:   []string{CodePairLocked},
		},
		{
			name:   "six letter pair passes",
			mutate: func(p *contracts.TradeProposal, _ *contracts.RequestMetadata) { p.Pair = "eurusd" },
			want:   []string{},
		},
		{
			name:   "session missing",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) { r.Session = "" },
			want:   []string{CodeSessionLocked},
		},
		{
			name:   "strategy",
			mutate: func(p *contracts.TradeProposal, _ *contracts.RequestMetadata) { p.StrategyTier = contracts.Tier4Swing },
			want:   []string{CodeStrategyLocked},
		},
		{
			name:   "sim mode",
			mutate: func(p *contracts.TradeProposal, _ *contracts.RequestMetadata) { p.AccountMode = contracts.ModeSim },
			want:   []string{CodeRequiresPaperMode},
		},
		{
			name: "everything",
			mutate: func(p *contracts.TradeProposal, r *contracts.RequestMetadata) {
				p.Pair = "USDJPY"
				p.StrategyTier = contracts.Tier1OrderflowSniping
				p.AccountMode = contracts.ModeLive
				r.Session = "new_york"
			},
			want: []string{CodePairLocked, CodeSessionLocked, CodeStrategyLocked, CodeRequiresPaperMode},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, req := proposal(), phaseRequest()
			tt.mutate(&p, &req)
			r := ValidateScope(p, req)
			assert.Equal(t, tt.want, r.Violations)
			assert.Equal(t, len(tt.want) == 0, r.OK)
		})
	}
}

func TestLimitsNotActivatedWithoutSignals(t *testing.T) {
	t.Parallel()

	r := ValidateInitialTradeLimits(proposal(), contracts.RequestMetadata{Session: "london"}, nil, nil, LimitsOptions{})
	assert.True(t, r.OK)
	assert.False(t, r.Derived.Activated)
	assert.Contains(t, r.Warnings, WarnLimitsNotActivated)
}

func TestLimitsStrictSignals(t *testing.T) {
	t.Parallel()

	r := ValidateInitialTradeLimits(proposal(), contracts.RequestMetadata{Session: "london"}, nil, nil, LimitsOptions{StrictSignals: true})
	assert.False(t, r.OK)
	assert.Equal(t, []string{CodeAGradeOnlyRequired, CodeEODDebriefRequired}, r.Violations)
}

func TestLimitsAccepts(t *testing.T) {
	t.Parallel()

	r := ValidateInitialTradeLimits(proposal(), phaseRequest(), &contracts.SessionStats{TradesTaken: contracts.Int(1)}, nil, LimitsOptions{})
	require.True(t, r.OK, r.Violations)
	assert.True(t, r.Derived.Activated)
	assert.True(t, r.Derived.IsAGrade)
	assert.Equal(t, "request_metadata.eod_debrief_ack", r.Derived.EODDebriefAckSource)
	assert.Equal(t, 2, r.Derived.MaxTradesPerSession)
}

func TestLimitsSessionCounterActivates(t *testing.T) {
	t.Parallel()

	r := ValidateInitialTradeLimits(proposal(), contracts.RequestMetadata{}, &contracts.SessionStats{TradesTaken: contracts.Int(2)}, nil, LimitsOptions{})
	assert.True(t, r.Derived.Activated)
	assert.Contains(t, r.Violations, CodeSessionTradeLimit)
	assert.Equal(t, []string{"session_stats.trades_taken"}, r.Derived.SignalsPresent)
}

func TestLimitsViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*contracts.TradeProposal, *contracts.RequestMetadata)
		session *contracts.SessionStats
		account *contracts.AccountStats
		want    []string
	}{
		{
			name:    "trade cap",
			session: &contracts.SessionStats{TradesTaken: contracts.Int(2)},
			want:    []string{CodeSessionTradeLimit},
		},
		{
			name:    "raised cap",
			mutate:  func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) { r.MaxTradesPerSession = contracts.Int(3) },
			session: &contracts.SessionStats{TradesTaken: contracts.Int(2)},
			want:    []string{},
		},
		{
			name:   "b grade",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) { r.SetupGrade = "B" },
			want:   []string{CodeAGradeOnlyRequired},
		},
		{
			name: "is_a_grade flag wins",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.SetupGrade = "B"
				r.IsAGrade = contracts.Bool(true)
			},
			want: []string{},
		},
		{
			name: "a grade only disabled",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.SetupGrade = "C"
				r.AGradeOnly = contracts.Bool(false)
			},
			want: []string{},
		},
		{
			name:    "red event from account",
			account: &contracts.AccountStats{RedEventActive: contracts.Bool(true)},
			want:    []string{CodeRedEventStandDown},
		},
		{
			name: "red event from proposal",
			mutate: func(p *contracts.TradeProposal, _ *contracts.RequestMetadata) {
				p.Metadata = &contracts.ProposalMetadata{RedEventActive: contracts.Bool(true)}
			},
			want: []string{CodeRedEventStandDown},
		},
		{
			name: "proposal ack ignored",
			mutate: func(p *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.EODDebriefAck = nil
				p.Metadata = &contracts.ProposalMetadata{EODDebriefAck: contracts.Bool(true)}
			},
			want: []string{CodeEODDebriefRequired},
		},
		{
			name: "account ack accepted",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.EODDebriefAck = nil
			},
			account: &contracts.AccountStats{EODDebriefAck: contracts.Bool(true)},
			want:    []string{},
		},
		{
			name: "acknowledged alias",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.EODDebriefAck = nil
				r.EODDebriefAcknowledged = contracts.Bool(true)
			},
			want: []string{},
		},
		{
			name: "ack not required",
			mutate: func(_ *contracts.TradeProposal, r *contracts.RequestMetadata) {
				r.EODDebriefAck = contracts.Bool(false)
				r.EODDebriefRequired = contracts.Bool(false)
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, req := proposal(), phaseRequest()
			if tt.mutate != nil {
				tt.mutate(&p, &req)
			}
			r := ValidateInitialTradeLimits(p, req, tt.session, tt.account, LimitsOptions{})
			assert.True(t, r.Derived.Activated)
			assert.Equal(t, tt.want, r.Violations)
			assert.Equal(t, len(tt.want) == 0, r.OK)
		})
	}
}
