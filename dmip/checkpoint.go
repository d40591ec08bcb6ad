package dmip

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/metrics"
	"github.com/rustyeddy/aion/phase"
	"github.com/rustyeddy/aion/pkg/id"
)

const (
	InfluenceAdvisoryOnly = "advisory_only"
	placeholderNote       = "placeholder: no advisory payload for pair"
	TaskBiasPublished     = "bias_published"
)

// Runner executes checkpoints. It holds only collaborators; each run is
// independent.
type Runner struct {
	weights any
	summary SummaryReader
	capture *CaptureLog
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*Runner)

// WithWeights sets the weighting runtime. It may implement any of
// SnapshotSource, MapSource or RawSource.
func WithWeights(src any) Option { return func(r *Runner) { r.weights = src } }

func WithSummary(s SummaryReader) Option { return func(r *Runner) { r.summary = s } }

// WithCaptureDir enables the capture journals under dir.
func WithCaptureDir(dir string) Option { return func(r *Runner) { r.capture = &CaptureLog{Dir: dir} } }

func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.log = l } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		log: log.Logger,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With().Str("component", "dmip").Logger()
	if r.capture != nil {
		r.capture.log = r.log
	}
	return r
}

// DecisionInfluence documents how weights were allowed to influence the
// sheet. Risk policy is never among the things they influence.
type DecisionInfluence struct {
	Mode                  string             `json:"mode"`
	WeightsAvailable      bool               `json:"weights_available"`
	WeightsSnapshotID     string             `json:"weights_snapshot_id,omitempty"`
	TrustWeights          *TrustWeights      `json:"trust_weights,omitempty"`
	MeanWeight            *float64           `json:"mean_weight,omitempty"`
	Thresholds            map[string]float64 `json:"thresholds"`
	PairsRefined          int                `json:"pairs_refined"`
	RiskInvariantsMutated bool               `json:"risk_invariants_mutated"`
}

type CheckpointResult struct {
	OK                bool                     `json:"ok"`
	SchemaVersion     string                   `json:"schema_version"`
	Checkpoint        contracts.Session        `json:"checkpoint"`
	BiasSheet         contracts.DailyBiasSheet `json:"bias_sheet"`
	Notes             []string                 `json:"notes"`
	LLMWeightedHints  map[string]WeightedHint  `json:"llm_weighted_hints"`
	LearningEvents    []CaptureReceipt         `json:"learning_events"`
	SummaryDiagnostic SummaryDiagnostic        `json:"llm_weighting_summary_diagnostic"`
	DecisionInfluence DecisionInfluence        `json:"decision_influence_weighting"`
}

// RunCheckpoint builds the bias sheet for one checkpoint. Only an unknown
// checkpoint key is an error; every other problem is reported in Notes.
func (r *Runner) RunCheckpoint(ctx context.Context, checkpoint string, snap *MarketSnapshot, advice map[string]AdvisoryPayload) (CheckpointResult, error) {
	cp, err := ParseCheckpoint(checkpoint)
	if err != nil {
		return CheckpointResult{}, err
	}
	if snap == nil {
		snap = &MarketSnapshot{}
	}
	advice = normalizeAdvice(advice)
	pairs := resolvePairs(snap.Pairs)
	now := r.now()

	res := CheckpointResult{
		OK:               true,
		SchemaVersion:    ResultSchemaVersion,
		Checkpoint:       cp,
		Notes:            []string{},
		LLMWeightedHints: make(map[string]WeightedHint, len(pairs)),
		LearningEvents:   []CaptureReceipt{},
	}

	ws, wnotes := r.acquire(ctx)
	res.Notes = append(res.Notes, wnotes...)
	res.DecisionInfluence = influence(ws)
	res.SummaryDiagnostic = r.readSummary(ctx, pairs, &res.Notes)

	sheet := contracts.DailyBiasSheet{
		SchemaVersion:   contracts.BiasSheetSchemaVersion,
		CheckpointID:    fmt.Sprintf("%s_%s", cp, id.New()),
		Session:         cp,
		RiskEnvironment: contracts.RiskUnknown,
		Pairs:           make([]contracts.PairBias, 0, len(pairs)),
		AvoidEvents:     append([]string(nil), snap.AvoidEvents...),
		LLMAgreement:    make(map[string]contracts.Agreement, len(pairs)),
		Metadata: contracts.BiasSheetMetadata{
			GeneratedAt: now,
			ProfileID:   snap.ProfileID,
			Environment: snap.Environment,
			Source:      "dmip_checkpoint",
		},
	}
	if env, ok := contracts.ParseRiskEnvironment(snap.RiskEnvironment); ok {
		sheet.RiskEnvironment = env
	} else if strings.TrimSpace(snap.RiskEnvironment) != "" {
		res.Notes = append(res.Notes, "risk_environment_unrecognised:"+snap.RiskEnvironment)
	}
	if ws != nil {
		sheet.Metadata.WeightsSnapshotID = ws.ID
	}

	for _, pair := range pairs {
		var ap *AdvisoryPayload
		if v, ok := advice[pair]; ok {
			ap = &v
		}
		pb, agreement, hint := pairBias(pair, ap, ws)
		if hint.Refinement == RefineStepUp || hint.Refinement == RefineStepDown {
			res.DecisionInfluence.PairsRefined++
		}
		sheet.Pairs = append(sheet.Pairs, pb)
		sheet.LLMAgreement[pair] = agreement
		res.LLMWeightedHints[pair] = hint
		metrics.DMIPPairAgreement.WithLabelValues(string(agreement)).Inc()
	}
	sheet.TradingConfidence = tradingConfidence(sheet.LLMAgreement)

	if err := sheet.Validate(); err != nil {
		res.OK = false
		res.Notes = append(res.Notes, "bias_sheet_invalid:"+strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	res.BiasSheet = sheet

	for i, pb := range sheet.Pairs {
		res.LearningEvents = append(res.LearningEvents, r.captureRows(sheet, pb, advice[pb.Pair], i, now)...)
	}

	metrics.DMIPCheckpoints.WithLabelValues(string(cp)).Inc()
	r.log.Info().
		Str("checkpoint", string(cp)).
		Str("checkpoint_id", sheet.CheckpointID).
		Str("trading_confidence", string(sheet.TradingConfidence)).
		Int("pairs", len(sheet.Pairs)).
		Msg("checkpoint complete")
	return res, nil
}

func resolvePairs(in []string) []string {
	src := in
	if len(src) == 0 {
		src = DefaultPairs
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(src))
	for _, p := range src {
		p = phase.NormalizePair(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// acquire reads the weight snapshot, turning panics in the weighting
// runtime into notes.
func (r *Runner) acquire(ctx context.Context) (ws *WeightSnapshot, notes []string) {
	defer func() {
		if v := recover(); v != nil {
			ws = nil
			notes = append(notes, fmt.Sprintf("weights_runtime_panic:%v", v))
		}
		if ws == nil && r.weights != nil {
			metrics.PersistenceFailures.WithLabelValues(metrics.OpWeights).Inc()
			r.log.Warn().Str("op", metrics.OpWeights).Strs("notes", notes).Msg("weights snapshot unavailable")
		}
	}()
	return acquireWeights(ctx, r.weights)
}

func (r *Runner) readSummary(ctx context.Context, pairs []string, notes *[]string) (diag SummaryDiagnostic) {
	diag.Pairs = map[string]PairHint{}
	if r.summary == nil {
		return diag
	}
	defer func() {
		if v := recover(); v != nil {
			diag = SummaryDiagnostic{Pairs: map[string]PairHint{}, Error: fmt.Sprint(v)}
			*notes = append(*notes, "learning_summary_unavailable:panic")
		}
	}()
	summary, err := r.summary.Summary(ctx)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues(metrics.OpSummary).Inc()
		r.log.Warn().Err(err).Str("op", metrics.OpSummary).Msg("learning summary unavailable")
		diag.Error = err.Error()
		*notes = append(*notes, "learning_summary_unavailable:"+err.Error())
		return diag
	}
	diag.OK = true
	diag.Available = len(summary) > 0
	diag.Pairs = summaryHints(pairs, summary)
	return diag
}

func influence(ws *WeightSnapshot) DecisionInfluence {
	d := DecisionInfluence{
		Mode: InfluenceAdvisoryOnly,
		Thresholds: map[string]float64{
			"low_to_medium_at":  LowToMediumAt,
			"medium_to_high_at": MediumToHighAt,
			"high_to_medium_at": HighToMediumAt,
			"medium_to_low_at":  MediumToLowAt,
		},
	}
	if ws == nil {
		return d
	}
	w := ExtractTrustWeights(ws.Raw)
	mean := w.Mean()
	d.WeightsAvailable = true
	d.WeightsSnapshotID = ws.ID
	d.TrustWeights = &w
	d.MeanWeight = &mean
	return d
}

// pairBias decides one pair. Disagreement is AVOID/LOW before weights are
// consulted; weights can only move an agreed confidence by one level.
func pairBias(pair string, ap *AdvisoryPayload, ws *WeightSnapshot) (contracts.PairBias, contracts.Agreement, WeightedHint) {
	hint := Synthesize(pair, ap, ws, "")
	pb := contracts.PairBias{Pair: pair}

	if ap == nil {
		pb.Bias = contracts.BiasNeutral
		pb.Confidence = contracts.ConfidenceLow
		pb.Notes = placeholderNote
		return pb, contracts.AgreementUnavailable, hint
	}

	pb.KeyLevels = keyLevels(ap.KeyLevels)
	conf := baseConfidence(ap, "")
	a, b, aok, bok := ap.biases()

	var agreement contracts.Agreement
	switch {
	case aok && bok && a != b:
		agreement = contracts.AgreementDisagree
		pb.Bias = contracts.BiasAvoid
		pb.Confidence = contracts.ConfidenceLow
		pb.Notes = fmt.Sprintf("advisors disagree: A=%s B=%s", a, b)
	case aok && bok:
		agreement = contracts.AgreementAgree
		pb.Bias = a
		pb.Confidence = conf
		hint = Synthesize(pair, ap, ws, conf)
		if hint.Agreement == contracts.AgreementAgree && hint.WeightedConfidence != nil {
			pb.Confidence = *hint.WeightedConfidence
		}
		pb.Notes = fmt.Sprintf("advisors agree: %s", a)
	default:
		agreement = contracts.AgreementPartial
		switch {
		case aok:
			pb.Bias = a
		case bok:
			pb.Bias = b
		default:
			pb.Bias = contracts.BiasNeutral
		}
		pb.Confidence = conf.StepDown()
		pb.Notes = "one advisor missing"
	}
	return pb, agreement, hint
}

// keyLevels keeps up to MaxKeyLevels numeric entries in order.
func keyLevels(raw []any) []float64 {
	var out []float64
	for _, v := range raw {
		if len(out) == contracts.MaxKeyLevels {
			break
		}
		if f, ok := numeric(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// tradingConfidence is MEDIUM only when every pair agrees.
func tradingConfidence(agreements map[string]contracts.Agreement) contracts.Confidence {
	if len(agreements) == 0 {
		return contracts.ConfidenceLow
	}
	for _, a := range agreements {
		if a != contracts.AgreementAgree {
			return contracts.ConfidenceLow
		}
	}
	return contracts.ConfidenceMedium
}

func (r *Runner) captureRows(sheet contracts.DailyBiasSheet, pb contracts.PairBias, ap AdvisoryPayload, idx int, now time.Time) []CaptureReceipt {
	agreement := sheet.LLMAgreement[pb.Pair]
	base := CaptureRow{
		Checkpoint:      string(sheet.Session),
		Pair:            pb.Pair,
		ABias:           strings.ToUpper(strings.TrimSpace(ap.ABias)),
		BBias:           strings.ToUpper(strings.TrimSpace(ap.BBias)),
		LLMConfidence:   strings.ToUpper(strings.TrimSpace(ap.Confidence)),
		Agreement:       agreement,
		FinalBias:       pb.Bias,
		FinalConfidence: pb.Confidence,
		Metadata:        CaptureMetadata{Source: "dmip_checkpoint", CheckpointID: sheet.CheckpointID},
	}

	accuracy := base
	accuracy.EventKind = KindAccuracy
	accuracy.Decision = &contracts.DecisionRecord{
		SchemaVersion: contracts.DecisionRecordSchemaVersion,
		DecisionID:    fmt.Sprintf("%s_%d", sheet.CheckpointID, idx),
		Kind:          contracts.DecisionCheckpoint,
		CreatedAt:     now,
		Checkpoint:    sheet.CheckpointID,
		Pair:          pb.Pair,
		Bias:          pb.Bias,
		Confidence:    pb.Confidence,
		Agreement:     agreement,
	}

	task := base
	task.EventKind = KindTask
	task.TaskStatus = TaskBiasPublished

	return []CaptureReceipt{r.capture.Record(accuracy, now), r.capture.Record(task, now)}
}

// SynthesisResult is a batch synthesis plus the weight acquisition notes.
type SynthesisResult struct {
	BatchResult
	WeightsSnapshotID string   `json:"weights_snapshot_id,omitempty"`
	Notes             []string `json:"notes"`
}

// Synthesize acquires the current weight snapshot and runs SynthesizeBatch
// with it.
func (r *Runner) Synthesize(ctx context.Context, pairs []string, advice map[string]AdvisoryPayload) SynthesisResult {
	ws, notes := r.acquire(ctx)
	res := SynthesisResult{
		BatchResult: SynthesizeBatch(pairs, advice, ws),
		Notes:       append([]string{}, notes...),
	}
	if ws != nil {
		res.WeightsSnapshotID = ws.ID
	}
	return res
}
