package paper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/rustyeddy/aion/journal"
	"github.com/rustyeddy/aion/metrics"
	"github.com/rustyeddy/aion/phase"
)

const (
	SnapshotSchemaVersion = "aion.paper_runtime.trades_snapshot.v1"

	EventsFile   = "paper_trade_events.jsonl"
	SnapshotFile = "paper_trades_snapshot.json"
	MetaFile     = "paper_runtime_state_meta.json"

	// DefaultPersistenceDir is used, relative to the working directory, when
	// persistence is enabled without a base directory.
	DefaultPersistenceDir = ".aion/paper_runtime"
)

type PersistenceConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	BaseDir string `json:"base_dir" yaml:"base_dir" mapstructure:"base_dir"`
}

type Paths struct {
	Events   string `json:"events"`
	Snapshot string `json:"snapshot"`
	Meta     string `json:"meta"`
}

func (c PersistenceConfig) Paths() Paths {
	if c.BaseDir == "" {
		return Paths{}
	}
	return Paths{
		Events:   filepath.Join(c.BaseDir, EventsFile),
		Snapshot: filepath.Join(c.BaseDir, SnapshotFile),
		Meta:     filepath.Join(c.BaseDir, MetaFile),
	}
}

// persistenceInput accepts the canonical keys and the older aliases.
type persistenceInput struct {
	Enabled            *bool  `mapstructure:"enabled"`
	PersistEnabled     *bool  `mapstructure:"persist_enabled"`
	PersistenceEnabled *bool  `mapstructure:"persistence_enabled"`
	BaseDir            string `mapstructure:"base_dir"`
	PersistenceDir     string `mapstructure:"persistence_dir"`
	RuntimeDir         string `mapstructure:"runtime_dir"`
}

// DecodePersistenceConfig reads {enabled, base_dir} from a loosely typed
// mapping. persist_enabled and persistence_enabled alias enabled;
// persistence_dir and runtime_dir alias base_dir. Canonical keys win.
func DecodePersistenceConfig(raw map[string]any) (PersistenceConfig, error) {
	return decodePersistence(PersistenceConfig{}, raw, false)
}

// MergePersistenceConfig overlays the keys present in raw, aliases
// included, onto base. Unknown keys are an error.
func MergePersistenceConfig(base PersistenceConfig, raw map[string]any) (PersistenceConfig, error) {
	return decodePersistence(base, raw, true)
}

func decodePersistence(base PersistenceConfig, raw map[string]any, strict bool) (PersistenceConfig, error) {
	var in persistenceInput
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           &in,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(raw); err != nil {
		return base, fmt.Errorf("decode persistence config: %w", err)
	}

	cfg := base
	for _, b := range []*bool{in.Enabled, in.PersistEnabled, in.PersistenceEnabled} {
		if b != nil {
			cfg.Enabled = *b
			break
		}
	}
	for _, d := range []string{in.BaseDir, in.PersistenceDir, in.RuntimeDir} {
		if strings.TrimSpace(d) != "" {
			cfg.BaseDir = strings.TrimSpace(d)
			break
		}
	}
	return cfg, nil
}

type PersistenceStatus struct {
	OK      bool              `json:"ok"`
	Enabled bool              `json:"enabled"`
	BaseDir string            `json:"base_dir"`
	Paths   Paths             `json:"paths"`
	Config  PersistenceConfig `json:"persistence"`
	Error   string            `json:"error,omitempty"`
	Meta    Meta              `json:"meta"`
}

// ConfigurePersistence switches file mirroring on or off. The base directory
// is created eagerly; a failure is reported in-band and later writes fail
// open.
func (r *Runtime) ConfigurePersistence(cfg PersistenceConfig) PersistenceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := PersistenceStatus{OK: true}
	if cfg.Enabled && cfg.BaseDir == "" {
		cfg.BaseDir = DefaultPersistenceDir
	}
	if cfg.BaseDir != "" {
		if abs, err := filepath.Abs(cfg.BaseDir); err == nil {
			cfg.BaseDir = abs
		}
	}
	if cfg.Enabled {
		if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
			st.OK = false
			st.Error = err.Error()
			r.log.Warn().Err(err).Str("path", cfg.BaseDir).Msg("persistence dir not created")
		}
	}
	r.persist = cfg

	st.Enabled = cfg.Enabled
	st.BaseDir = cfg.BaseDir
	st.Paths = cfg.Paths()
	st.Config = cfg
	st.Meta = r.meta()
	return st
}

// Persistence returns the current persistence settings.
func (r *Runtime) Persistence() PersistenceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist
}

type snapshotCounts struct {
	Trades int `json:"trades"`
	Events int `json:"events"`
}

type snapshotEnvelope struct {
	SchemaVersion string           `json:"schema_version"`
	Runtime       string           `json:"runtime"`
	Phase         string           `json:"phase"`
	SnapshotTS    time.Time        `json:"snapshot_ts"`
	Counts        snapshotCounts   `json:"counts"`
	Trades        map[string]Trade `json:"trades"`
}

// StateMeta is the content of the meta file.
type StateMeta struct {
	Phase       string    `json:"phase"`
	Runtime     string    `json:"runtime"`
	TradesCount int       `json:"trades_count"`
	EventsCount int       `json:"events_count"`
	SnapshotTS  time.Time `json:"snapshot_ts"`
}

type SnapshotResult struct {
	OK          bool   `json:"ok"`
	TradesCount int    `json:"trades_count"`
	EventsCount int    `json:"events_count"`
	Paths       Paths  `json:"paths"`
	Error       string `json:"error,omitempty"`
	Meta        Meta   `json:"meta"`
}

var errPersistenceDisabled = errors.New("persistence_disabled")

// Snapshot writes the trades map and the meta file. Both files are replaced
// whole. The result reports failure instead of returning an error.
func (r *Runtime) Snapshot() SnapshotResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := SnapshotResult{
		TradesCount: len(r.trades),
		EventsCount: len(r.events),
		Paths:       r.persist.Paths(),
		Meta:        r.meta(),
	}
	if !r.persist.Enabled {
		res.Error = errPersistenceDisabled.Error()
		return res
	}

	ts := r.now()
	env := snapshotEnvelope{
		SchemaVersion: SnapshotSchemaVersion,
		Runtime:       RuntimeName,
		Phase:         phase.Name,
		SnapshotTS:    ts,
		Counts:        snapshotCounts{Trades: len(r.trades), Events: len(r.events)},
		Trades:        make(map[string]Trade, len(r.trades)),
	}
	for k, t := range r.trades {
		env.Trades[k] = t.clone()
	}

	if err := journal.WriteJSONAtomic(res.Paths.Snapshot, env); err != nil {
		return r.snapshotFailed(res, metrics.OpSnapshot, res.Paths.Snapshot, err)
	}
	meta := StateMeta{
		Phase:       phase.Name,
		Runtime:     RuntimeName,
		TradesCount: env.Counts.Trades,
		EventsCount: env.Counts.Events,
		SnapshotTS:  ts,
	}
	if err := journal.WriteJSONAtomic(res.Paths.Meta, meta); err != nil {
		return r.snapshotFailed(res, metrics.OpStateMeta, res.Paths.Meta, err)
	}

	res.OK = true
	return res
}

func (r *Runtime) snapshotFailed(res SnapshotResult, op, path string, err error) SnapshotResult {
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	r.log.Warn().Err(err).Str("op", op).Str("path", path).Msg("snapshot write failed")
	res.Error = err.Error()
	return res
}

const snapshotSchema = `{
  "type": "object",
  "required": ["schema_version", "trades"],
  "properties": {
    "schema_version": {"const": "aion.paper_runtime.trades_snapshot.v1"},
    "runtime": {"type": "string"},
    "phase": {"type": "string"},
    "snapshot_ts": {"type": "string"},
    "counts": {
      "type": "object",
      "properties": {
        "trades": {"type": "integer", "minimum": 0},
        "events": {"type": "integer", "minimum": 0}
      }
    },
    "trades": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["trade_id", "status"]
      }
    }
  }
}`

var envelopeSchema = jsonschema.MustCompileString("paper_trades_snapshot.schema.json", snapshotSchema)

type RestoreResult struct {
	OK             bool   `json:"ok"`
	RestoredTrades int    `json:"restored_trades"`
	RestoredEvents int    `json:"restored_events"`
	SkippedEvents  int    `json:"skipped_events"`
	LegacySnapshot bool   `json:"legacy_snapshot"`
	Paths          Paths  `json:"paths"`
	Error          string `json:"error,omitempty"`
	Meta           Meta   `json:"meta"`
}

// Restore reloads trades from the snapshot file and events from the events
// file. The snapshot may be the wrapped envelope or a bare trade_id to trade
// mapping. With clearExisting the in-memory state is emptied first;
// otherwise restored trades replace same-id trades and unseen events are
// appended.
func (r *Runtime) Restore(clearExisting bool) RestoreResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := RestoreResult{Paths: r.persist.Paths(), Meta: r.meta()}
	if !r.persist.Enabled {
		res.Error = errPersistenceDisabled.Error()
		return res
	}

	trades, legacy, err := readSnapshot(res.Paths.Snapshot)
	if err != nil {
		return r.restoreFailed(res, res.Paths.Snapshot, err)
	}
	events, skipped, err := readEvents(res.Paths.Events)
	if err != nil {
		return r.restoreFailed(res, res.Paths.Events, err)
	}

	if clearExisting {
		r.trades = make(map[string]*Trade, len(trades))
		r.events = nil
	}
	for k, t := range trades {
		t := t
		r.trades[k] = &t
	}
	seen := make(map[string]bool, len(r.events))
	for _, ev := range r.events {
		seen[ev.EventID] = true
	}
	restored := 0
	for _, ev := range events {
		if seen[ev.EventID] {
			continue
		}
		seen[ev.EventID] = true
		r.events = append(r.events, ev)
		restored++
	}
	if skipped > 0 {
		r.log.Warn().Int("skipped", skipped).Str("path", res.Paths.Events).Msg("unreadable event rows skipped")
	}

	res.OK = true
	res.RestoredTrades = len(trades)
	res.RestoredEvents = restored
	res.SkippedEvents = skipped
	res.LegacySnapshot = legacy
	return res
}

// RestoreSnapshot is kept for callers of the older name.
func (r *Runtime) RestoreSnapshot(clearExisting bool) RestoreResult {
	return r.Restore(clearExisting)
}

func (r *Runtime) restoreFailed(res RestoreResult, path string, err error) RestoreResult {
	metrics.PersistenceFailures.WithLabelValues(metrics.OpRestore).Inc()
	r.log.Warn().Err(err).Str("op", metrics.OpRestore).Str("path", path).Msg("restore failed")
	res.Error = err.Error()
	return res
}

// readSnapshot returns the trades in path. A missing file is an empty
// snapshot.
func readSnapshot(path string) (map[string]Trade, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Trade{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, false, fmt.Errorf("%s: not a JSON object", filepath.Base(path))
	}

	if gjson.GetBytes(data, "schema_version").Exists() {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, false, err
		}
		if err := envelopeSchema.Validate(doc); err != nil {
			return nil, false, fmt.Errorf("snapshot envelope: %w", err)
		}
		var env snapshotEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, false, fmt.Errorf("decode snapshot: %w", err)
		}
		return keyed(env.Trades), false, nil
	}

	var bare map[string]Trade
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, true, fmt.Errorf("decode legacy snapshot: %w", err)
	}
	return keyed(bare), true, nil
}

// keyed fills a missing trade_id from the map key.
func keyed(in map[string]Trade) map[string]Trade {
	out := make(map[string]Trade, len(in))
	for k, t := range in {
		if t.TradeID == "" {
			t.TradeID = k
		}
		out[k] = t
	}
	return out
}

// readEvents decodes the events file, skipping rows that are malformed or
// lack an id or type. Unknown fields are ignored.
func readEvents(path string) ([]Event, int, error) {
	rows, skipped, err := journal.ReadJSONL(path)
	if err != nil {
		return nil, skipped, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		var ev Event
		if err := json.Unmarshal(row, &ev); err != nil || ev.EventID == "" || ev.EventType == "" {
			skipped++
			continue
		}
		if len(ev.Payload) == 0 {
			ev.Payload = json.RawMessage(`{}`)
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}

type Cleared struct {
	Trades int      `json:"trades"`
	Events int      `json:"events"`
	Files  []string `json:"files"`
}

type ResetResult struct {
	OK      bool     `json:"ok"`
	Cleared Cleared  `json:"cleared"`
	Errors  []string `json:"errors,omitempty"`
	Meta    Meta     `json:"meta"`
}

// Reset empties the in-memory state and, with clearFiles, removes the
// persistence files.
func (r *Runtime) Reset(clearFiles bool) ResetResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := ResetResult{
		OK:      true,
		Cleared: Cleared{Trades: len(r.trades), Events: len(r.events), Files: []string{}},
	}
	r.trades = make(map[string]*Trade)
	r.events = nil

	if clearFiles && r.persist.BaseDir != "" {
		p := r.persist.Paths()
		for _, f := range []string{p.Events, p.Snapshot, p.Meta} {
			err := os.Remove(f)
			switch {
			case err == nil:
				res.Cleared.Files = append(res.Cleared.Files, f)
			case errors.Is(err, os.ErrNotExist):
			default:
				res.OK = false
				res.Errors = append(res.Errors, err.Error())
				r.log.Warn().Err(err).Str("path", f).Msg("persistence file not removed")
			}
		}
	}
	res.Meta = r.meta()
	return res
}
