package dmip

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTrustWeights(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want TrustWeights
	}{
		{"top level", `{"llm_trust_weights":{"claude":1.2,"gpt4":0.8}}`, TrustWeights{1.2, 0.8}},
		{"nested", `{"weights":{"llm_trust_weights":{"A":1.5,"B":1.1}}}`, TrustWeights{1.5, 1.1}},
		{"flat weights", `{"weights":{"claude":0.7,"gpt4":0.9}}`, TrustWeights{0.7, 0.9}},
		{"missing defaults to one", `{"llm_trust_weights":{"claude":2}}`, TrustWeights{2, 1}},
		{"negative clamps", `{"llm_trust_weights":{"claude":-1,"gpt4":1}}`, TrustWeights{0, 1}},
		{"non-numeric ignored", `{"llm_trust_weights":{"claude":"high"}}`, TrustWeights{1, 1}},
		{"empty", `{}`, TrustWeights{1, 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractTrustWeights([]byte(tt.raw)))
		})
	}
}

func TestAcquireWeightsShapes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snap, notes := acquireWeights(ctx, weightsWithMean("s1", 1, 1))
	require.NotNil(t, snap)
	assert.Empty(t, notes)
	assert.Equal(t, "s1", snap.ID)

	snap, notes = acquireWeights(ctx, mapWeights{"weights_snapshot_id": "m1", "weights": map[string]any{"claude": 1.1}})
	require.NotNil(t, snap)
	assert.Empty(t, notes)
	assert.Equal(t, "m1", snap.ID)
	assert.InDelta(t, 1.1, ExtractTrustWeights(snap.Raw).A, 1e-9)

	snap, _ = acquireWeights(ctx, rawWeights(`{"id":"r1"}`))
	require.NotNil(t, snap)
	assert.Equal(t, "r1", snap.ID)
}

func TestAcquireWeightsFallsBackInOrder(t *testing.T) {
	t.Parallel()

	snap, notes := acquireWeights(context.Background(), brokenSnapshot{raw: []byte(`{"snapshot_id":"fallback"}`)})
	require.NotNil(t, snap)
	assert.Equal(t, "fallback", snap.ID)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "weights_weight_snapshot_failed")
	assert.Contains(t, notes[0], "store offline")
}

func TestAcquireWeightsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snap, notes := acquireWeights(ctx, nil)
	assert.Nil(t, snap)
	assert.Equal(t, []string{"weights_runtime_not_configured"}, notes)

	snap, notes = acquireWeights(ctx, struct{}{})
	assert.Nil(t, snap)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "unsupported_shape")

	snap, notes = acquireWeights(ctx, rawWeights(`[1,2]`))
	assert.Nil(t, snap)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "weights_raw_weights_failed")

	fail := snapshotFunc(func(context.Context) (WeightSnapshot, error) { return WeightSnapshot{}, errors.New("boom") })
	snap, notes = acquireWeights(ctx, fail)
	assert.Nil(t, snap)
	assert.Equal(t, []string{"weights_weight_snapshot_failed:boom"}, notes)
}

func TestFileWeightSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "weights.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"snapshot_id":"j1","llm_trust_weights":{"claude":1.3,"gpt4":1.3}}`), 0o644))
	snap, err := FileWeightSource{Path: jsonPath}.WeightSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j1", snap.ID)
	assert.InDelta(t, 1.3, ExtractTrustWeights(snap.Raw).Mean(), 1e-9)

	yamlPath := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("snapshot_id: y1\nweights:\n  llm_trust_weights:\n    A: 0.4\n    B: 0.6\n"), 0o644))
	snap, err = FileWeightSource{Path: yamlPath}.WeightSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y1", snap.ID)
	assert.Equal(t, TrustWeights{0.4, 0.6}, ExtractTrustWeights(snap.Raw))

	_, err = FileWeightSource{Path: filepath.Join(dir, "missing.json")}.WeightSnapshot(context.Background())
	assert.Error(t, err)
}
