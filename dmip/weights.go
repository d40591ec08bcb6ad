package dmip

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// WeightSnapshot is a governed, versioned set of advisor trust weights. Raw
// is kept as JSON so any of the known shapes can be read from it.
type WeightSnapshot struct {
	ID  string          `json:"snapshot_id"`
	Raw json.RawMessage `json:"raw"`
}

// The weighting runtime can expose its snapshot in several ways. They are
// tried in this order:
//
//	SnapshotSource  WeightSnapshot(ctx) (WeightSnapshot, error)
//	MapSource       CurrentWeights(ctx) (map[string]any, error)
//	RawSource       RawWeights() ([]byte, error)
type SnapshotSource interface {
	WeightSnapshot(ctx context.Context) (WeightSnapshot, error)
}

type MapSource interface {
	CurrentWeights(ctx context.Context) (map[string]any, error)
}

type RawSource interface {
	RawWeights() ([]byte, error)
}

// acquireWeights asks src for a snapshot using each supported shape in
// order. Failures are returned as notes; a nil snapshot means none could
// be read.
func acquireWeights(ctx context.Context, src any) (*WeightSnapshot, []string) {
	if src == nil {
		return nil, []string{"weights_runtime_not_configured"}
	}

	var notes []string
	if s, ok := src.(SnapshotSource); ok {
		snap, err := s.WeightSnapshot(ctx)
		if err == nil && gjson.ValidBytes(snap.Raw) {
			return &snap, notes
		}
		notes = append(notes, failureNote("weight_snapshot", err))
	}
	if s, ok := src.(MapSource); ok {
		m, err := s.CurrentWeights(ctx)
		if err == nil {
			snap, mErr := snapshotFromMap(m)
			if mErr == nil {
				return &snap, notes
			}
			err = mErr
		}
		notes = append(notes, failureNote("current_weights", err))
	}
	if s, ok := src.(RawSource); ok {
		raw, err := s.RawWeights()
		if err == nil {
			snap, rErr := snapshotFromJSON(raw)
			if rErr == nil {
				return &snap, notes
			}
			err = rErr
		}
		notes = append(notes, failureNote("raw_weights", err))
	}
	if len(notes) == 0 {
		notes = append(notes, fmt.Sprintf("weights_runtime_unsupported_shape:%T", src))
	}
	return nil, notes
}

func failureNote(shape string, err error) string {
	if err == nil {
		err = ErrWeightsUnavailable
	}
	return fmt.Sprintf("weights_%s_failed:%v", shape, err)
}

func snapshotFromMap(m map[string]any) (WeightSnapshot, error) {
	if m == nil {
		return WeightSnapshot{}, ErrWeightsUnavailable
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return WeightSnapshot{}, err
	}
	return snapshotFromJSON(raw)
}

func snapshotFromJSON(raw []byte) (WeightSnapshot, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return WeightSnapshot{}, fmt.Errorf("%w: not a JSON object", ErrWeightsUnavailable)
	}
	id := ""
	for _, path := range []string{"snapshot_id", "weights_snapshot_id", "id", "weights.snapshot_id"} {
		if v := gjson.GetBytes(raw, path); v.Exists() {
			id = v.String()
			break
		}
	}
	return WeightSnapshot{ID: id, Raw: json.RawMessage(raw)}, nil
}

// TrustWeights are the two advisors' weights.
type TrustWeights struct {
	A float64 `json:"A"`
	B float64 `json:"B"`
}

func (w TrustWeights) Mean() float64 { return (w.A + w.B) / 2 }

// advisorKeys maps each advisor to the keys a snapshot may use for it.
var advisorKeys = struct{ a, b []string }{
	a: []string{"claude", "A"},
	b: []string{"gpt4", "B"},
}

// ExtractTrustWeights reads the two trust weights. Accepted locations, first
// hit wins: llm_trust_weights.<k>, weights.llm_trust_weights.<k>,
// weights.<k>. Missing weights are 1.0; negatives clamp to 0.
func ExtractTrustWeights(raw []byte) TrustWeights {
	return TrustWeights{
		A: lookupWeight(raw, advisorKeys.a),
		B: lookupWeight(raw, advisorKeys.b),
	}
}

func lookupWeight(raw []byte, keys []string) float64 {
	for _, prefix := range []string{"llm_trust_weights.", "weights.llm_trust_weights.", "weights."} {
		for _, k := range keys {
			v := gjson.GetBytes(raw, prefix+k)
			if !v.Exists() || v.Type != gjson.Number {
				continue
			}
			w := v.Float()
			if math.IsNaN(w) || w < 0 {
				return 0
			}
			return w
		}
	}
	return 1.0
}

// FileWeightSource reads a weight snapshot from a JSON or YAML file.
type FileWeightSource struct {
	Path string
}

func (f FileWeightSource) WeightSnapshot(ctx context.Context) (WeightSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return WeightSnapshot{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return WeightSnapshot{}, fmt.Errorf("read weights: %w", err)
	}

	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return WeightSnapshot{}, fmt.Errorf("parse weights yaml: %w", err)
		}
		return snapshotFromMap(m)
	default:
		return snapshotFromJSON(data)
	}
}
