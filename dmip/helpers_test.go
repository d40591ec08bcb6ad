package dmip

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/aion/contracts"
)

var fixedNow = time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)

type snapshotFunc func(ctx context.Context) (WeightSnapshot, error)

func (f snapshotFunc) WeightSnapshot(ctx context.Context) (WeightSnapshot, error) { return f(ctx) }

type mapWeights map[string]any

func (m mapWeights) CurrentWeights(context.Context) (map[string]any, error) { return m, nil }

type rawWeights []byte

func (r rawWeights) RawWeights() ([]byte, error) { return r, nil }

// brokenSnapshot fails the preferred shape but offers a raw fallback.
type brokenSnapshot struct{ raw []byte }

func (brokenSnapshot) WeightSnapshot(context.Context) (WeightSnapshot, error) {
	return WeightSnapshot{}, errors.New("store offline")
}

func (b brokenSnapshot) RawWeights() ([]byte, error) { return b.raw, nil }

type summaryFunc func(ctx context.Context) (map[string]PairSummary, error)

func (f summaryFunc) Summary(ctx context.Context) (map[string]PairSummary, error) { return f(ctx) }

func weightsWithMean(id string, a, b float64) snapshotFunc {
	return func(context.Context) (WeightSnapshot, error) {
		return WeightSnapshot{
			ID:  id,
			Raw: []byte(`{"snapshot_id":"` + id + `","llm_trust_weights":{"claude":` + ftoa(a) + `,"gpt4":` + ftoa(b) + `}}`),
		}, nil
	}
}

func ftoa(f float64) string {
	return string(mustJSON(f))
}

func testSnapshot(id string, a, b float64) *WeightSnapshot {
	s, _ := weightsWithMean(id, a, b)(context.Background())
	return &s
}

func newTestRunner(opts ...Option) *Runner {
	base := []Option{
		WithLogger(zerolog.Nop()),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewRunner(append(base, opts...)...)
}

func agree(b contracts.Bias, c contracts.Confidence) AdvisoryPayload {
	return AdvisoryPayload{ABias: string(b), BBias: string(b), Confidence: string(c)}
}

func pairByName(sheet contracts.DailyBiasSheet, pair string) (contracts.PairBias, bool) {
	for _, p := range sheet.Pairs {
		if p.Pair == pair {
			return p, true
		}
	}
	return contracts.PairBias{}, false
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
