package dmip

import (
	"sort"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/phase"
	"github.com/rustyeddy/aion/risk"
)

// Refinement thresholds on the mean advisor trust weight. Each applies to
// exactly one starting confidence, so a refinement moves at most one level.
const (
	LowToMediumAt  = 1.25
	MediumToHighAt = 1.50
	HighToMediumAt = 0.60
	MediumToLowAt  = 0.50
)

const (
	ReasonWeightsUnavailable = "weights_snapshot_unavailable"
	ReasonPayloadMissing     = "llm_payload_missing"
	ReasonBiasesDisagree     = "llm_biases_disagree"
	ReasonOneSideMissing     = "llm_bias_one_side_missing"
)

const (
	RefineNone     = "none"
	RefineStepUp   = "step_up"
	RefineStepDown = "step_down"
)

// WeightedHint is the synthesis output for one pair.
type WeightedHint struct {
	OK                 bool                  `json:"ok"`
	Pair               string                `json:"pair"`
	Agreement          contracts.Agreement   `json:"agreement"`
	WeightedBias       *contracts.Bias       `json:"weighted_bias,omitempty"`
	WeightedConfidence *contracts.Confidence `json:"weighted_confidence,omitempty"`
	BaseConfidence     contracts.Confidence  `json:"base_confidence,omitempty"`
	Refinement         string                `json:"refinement,omitempty"`
	Weights            *TrustWeights         `json:"weights,omitempty"`
	MeanWeight         *float64              `json:"mean_weight,omitempty"`
	WeightsSnapshotID  string                `json:"weights_snapshot_id,omitempty"`
	Reason             string                `json:"reason,omitempty"`
}

// Refine applies the bounded confidence adjustment for a mean trust weight.
func Refine(c contracts.Confidence, mean float64) (contracts.Confidence, string) {
	switch {
	case c == contracts.ConfidenceLow && mean >= LowToMediumAt:
		return c.StepUp(), RefineStepUp
	case c == contracts.ConfidenceMedium && mean >= MediumToHighAt:
		return c.StepUp(), RefineStepUp
	case c == contracts.ConfidenceHigh && mean <= HighToMediumAt:
		return c.StepDown(), RefineStepDown
	case c == contracts.ConfidenceMedium && mean <= MediumToLowAt:
		return c.StepDown(), RefineStepDown
	}
	return c, RefineNone
}

// baseConfidence picks the caller's base, then the advisory confidence,
// then MEDIUM.
func baseConfidence(advice *AdvisoryPayload, base contracts.Confidence) contracts.Confidence {
	if base.Valid() {
		return base
	}
	if advice != nil {
		if c, ok := contracts.ParseConfidence(advice.Confidence); ok {
			return c
		}
	}
	return contracts.ConfidenceMedium
}

// Synthesize fuses the two advisory biases for one pair under the given
// weight snapshot. A disagreement is always AVOID/LOW whatever the weights.
// base may be empty.
func Synthesize(pair string, advice *AdvisoryPayload, snap *WeightSnapshot, base contracts.Confidence) WeightedHint {
	h := WeightedHint{Pair: phase.NormalizePair(pair)}
	if snap == nil {
		h.Agreement = contracts.AgreementUnavailable
		h.Reason = ReasonWeightsUnavailable
		return h
	}
	h.WeightsSnapshotID = snap.ID
	w := ExtractTrustWeights(snap.Raw)
	mean := risk.Round(w.Mean(), 6)
	h.Weights = &w
	h.MeanWeight = &mean

	if advice == nil {
		h.Agreement = contracts.AgreementUnavailable
		h.Reason = ReasonPayloadMissing
		return h
	}

	h.OK = true
	a, b, aok, bok := advice.biases()
	switch {
	case aok && bok && a != b:
		avoid, low := contracts.BiasAvoid, contracts.ConfidenceLow
		h.Agreement = contracts.AgreementDisagree
		h.WeightedBias = &avoid
		h.WeightedConfidence = &low
		h.Reason = ReasonBiasesDisagree
	case aok && bok:
		conf := baseConfidence(advice, base)
		refined, how := Refine(conf, mean)
		h.Agreement = contracts.AgreementAgree
		h.WeightedBias = &a
		h.WeightedConfidence = &refined
		h.BaseConfidence = conf
		h.Refinement = how
	default:
		h.Agreement = contracts.AgreementPartial
		h.Reason = ReasonOneSideMissing
	}
	return h
}

type BatchCounts struct {
	TotalPairsSeen      int `json:"total_pairs_seen"`
	PairsWithLLMPayload int `json:"pairs_with_llm_payload"`
	Agree               int `json:"agree"`
	Disagree            int `json:"disagree"`
	Partial             int `json:"partial"`
	Unavailable         int `json:"unavailable"`
	OKResults           int `json:"ok_results"`
	NotOKResults        int `json:"not_ok_results"`
}

type BatchResult struct {
	Counts BatchCounts             `json:"counts"`
	Pairs  map[string]WeightedHint `json:"pairs"`
}

// SynthesizeBatch runs Synthesize over the union of pairs and the pairs
// that have advice.
func SynthesizeBatch(pairs []string, advice map[string]AdvisoryPayload, snap *WeightSnapshot) BatchResult {
	advice = normalizeAdvice(advice)
	seen := map[string]bool{}
	var all []string
	add := func(p string) {
		p = phase.NormalizePair(p)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		all = append(all, p)
	}
	for _, p := range pairs {
		add(p)
	}
	extra := make([]string, 0, len(advice))
	for p := range advice {
		extra = append(extra, p)
	}
	sort.Strings(extra)
	for _, p := range extra {
		add(p)
	}

	res := BatchResult{Pairs: make(map[string]WeightedHint, len(all))}
	for _, p := range all {
		var ap *AdvisoryPayload
		if v, ok := advice[p]; ok {
			ap = &v
			res.Counts.PairsWithLLMPayload++
		}
		h := Synthesize(p, ap, snap, "")
		res.Pairs[p] = h
		res.Counts.TotalPairsSeen++
		switch h.Agreement {
		case contracts.AgreementAgree:
			res.Counts.Agree++
		case contracts.AgreementDisagree:
			res.Counts.Disagree++
		case contracts.AgreementPartial:
			res.Counts.Partial++
		default:
			res.Counts.Unavailable++
		}
		if h.OK {
			res.Counts.OKResults++
		} else {
			res.Counts.NotOKResults++
		}
	}
	return res
}
