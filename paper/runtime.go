package paper

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/journal"
	"github.com/rustyeddy/aion/metrics"
	"github.com/rustyeddy/aion/phase"
	"github.com/rustyeddy/aion/pkg/id"
)

// Runtime holds the trades map and the ordered event stream.
type Runtime struct {
	mu     sync.Mutex
	trades map[string]*Trade
	events []Event

	persist  PersistenceConfig
	recorder journal.Journal
	limits   phase.LimitsOptions
	policy   *contracts.TradingRiskPolicy

	log zerolog.Logger
	now func() time.Time
}

type Option func(*Runtime)

func WithLogger(l zerolog.Logger) Option { return func(r *Runtime) { r.log = l } }

func WithClock(now func() time.Time) Option { return func(r *Runtime) { r.now = now } }

// WithRecorder mirrors every closed trade to j. Mirror failures are logged
// and otherwise ignored.
func WithRecorder(j journal.Journal) Option { return func(r *Runtime) { r.recorder = j } }

func WithLimitsOptions(o phase.LimitsOptions) Option { return func(r *Runtime) { r.limits = o } }

// WithPolicy sets the policy used when a submission carries none.
func WithPolicy(p contracts.TradingRiskPolicy) Option {
	return func(r *Runtime) { r.policy = &p }
}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		trades:   make(map[string]*Trade),
		recorder: journal.Nop{},
		log:      log.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With().Str("component", "paper_runtime").Logger()
	return r
}

func (r *Runtime) meta() Meta {
	return Meta{
		Runtime:            RuntimeName,
		Phase:              phase.Name,
		TS:                 r.now(),
		PersistenceEnabled: r.persist.Enabled,
	}
}

// emit appends an event to the stream and, when persistence is on, to the
// events file. Callers hold r.mu.
func (r *Runtime) emit(typ contracts.EventType, tradeID string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Warn().Err(err).Str("event_type", string(typ)).Msg("event payload not serialisable")
		raw = json.RawMessage(`{}`)
	}
	ev := Event{
		EventID:   id.WithPrefix("evt"),
		EventType: typ,
		TS:        r.now(),
		TradeID:   tradeID,
		Payload:   raw,
	}
	r.events = append(r.events, ev)
	metrics.PaperEvents.WithLabelValues(string(typ)).Inc()

	if r.persist.Enabled {
		path := r.persist.Paths().Events
		if err := journal.AppendJSONL(path, ev); err != nil {
			metrics.PersistenceFailures.WithLabelValues(metrics.OpEventAppend).Inc()
			r.log.Warn().Err(err).
				Str("op", metrics.OpEventAppend).
				Str("path", path).
				Str("trade_id", tradeID).
				Msg("event append failed")
		}
	}
	return ev
}

// failClosed runs a gate and turns a panic into reject(<gate>_internal_error).
func failClosed[T any](l zerolog.Logger, gate string, run func() T, reject func(code string) T) (res T) {
	defer func() {
		if v := recover(); v != nil {
			l.Error().Str("gate", gate).Interface("panic", v).Msg("gate failed closed")
			res = reject(gate + "_internal_error")
		}
	}()
	return run()
}

// Get returns a copy of the trade.
func (r *Runtime) Get(tradeID string) (Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[tradeID]
	if !ok {
		return Trade{}, fmt.Errorf("get %q: %w", tradeID, ErrTradeNotFound)
	}
	return t.clone(), nil
}

// List returns trades ordered by opened_ts. An empty status returns all of
// them; otherwise status is normalised ("open", "Closed", ...).
func (r *Runtime) List(status string) ([]Trade, error) {
	var want contracts.TradeStatus
	if strings.TrimSpace(status) != "" {
		s, ok := contracts.ParseTradeStatus(status)
		if !ok {
			return nil, fmt.Errorf("list: unknown status %q", status)
		}
		want = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Trade, 0, len(r.trades))
	for _, t := range r.trades {
		if want != "" && t.Status != want {
			continue
		}
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedTS.Equal(out[j].OpenedTS) {
			return out[i].TradeID < out[j].TradeID
		}
		return out[i].OpenedTS.Before(out[j].OpenedTS)
	})
	return out, nil
}

// Events returns a copy of the event stream, optionally limited to one trade.
func (r *Runtime) Events(tradeID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0, len(r.events))
	for _, ev := range r.events {
		if tradeID != "" && ev.TradeID != tradeID {
			continue
		}
		out = append(out, ev)
	}
	return out
}
