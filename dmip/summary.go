package dmip

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/journal"
)

// PairSummary aggregates past accuracy rows for one pair.
type PairSummary struct {
	Observations int    `json:"observations"`
	Agree        int    `json:"agree"`
	Disagree     int    `json:"disagree"`
	Partial      int    `json:"partial"`
	Unavailable  int    `json:"unavailable"`
	LastBias     string `json:"last_bias,omitempty"`
}

// AgreeRate is agree / observations, or 0 with no observations.
func (p PairSummary) AgreeRate() float64 {
	if p.Observations == 0 {
		return 0
	}
	return float64(p.Agree) / float64(p.Observations)
}

// SummaryReader is the read-only learning-summary facade.
type SummaryReader interface {
	Summary(ctx context.Context) (map[string]PairSummary, error)
}

// CaptureSummary summarises the accuracy capture journal in Dir.
type CaptureSummary struct {
	Dir string
}

func (s CaptureSummary) Summary(ctx context.Context) (map[string]PairSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := CaptureLog{Dir: s.Dir}
	rows, _, err := journal.ReadJSONL(log.path(KindAccuracy))
	if err != nil {
		return nil, err
	}

	out := map[string]PairSummary{}
	for _, row := range rows {
		r := gjson.ParseBytes(row)
		if r.Get("event_kind").String() != KindAccuracy {
			continue
		}
		pair := r.Get("pair").String()
		if pair == "" {
			continue
		}
		ps := out[pair]
		ps.Observations++
		switch contracts.Agreement(r.Get("agreement").String()) {
		case contracts.AgreementAgree:
			ps.Agree++
		case contracts.AgreementDisagree:
			ps.Disagree++
		case contracts.AgreementPartial:
			ps.Partial++
		default:
			ps.Unavailable++
		}
		if b := r.Get("final_bias").String(); b != "" {
			ps.LastBias = b
		}
		out[pair] = ps
	}
	return out, nil
}

// Summary hints.
const (
	HintNoHistory          = "no_history"
	HintAdvisorsConsistent = "advisors_mostly_agree"
	HintAdvisorsSplit      = "advisors_often_disagree"
	HintMixed              = "mixed_history"
)

type PairHint struct {
	PairSummary
	AgreementRate float64 `json:"agree_rate"`
	Hint          string  `json:"hint"`
}

// SummaryDiagnostic is surfaced as llm_weighting_summary_diagnostic.
type SummaryDiagnostic struct {
	OK        bool                `json:"ok"`
	Available bool                `json:"available"`
	Pairs     map[string]PairHint `json:"pairs"`
	Error     string              `json:"error,omitempty"`
}

func hintFor(ps PairSummary) PairHint {
	h := PairHint{PairSummary: ps, AgreementRate: ps.AgreeRate()}
	switch {
	case ps.Observations == 0:
		h.Hint = HintNoHistory
	case h.AgreementRate >= 0.7:
		h.Hint = HintAdvisorsConsistent
	case float64(ps.Disagree)/float64(ps.Observations) >= 0.5:
		h.Hint = HintAdvisorsSplit
	default:
		h.Hint = HintMixed
	}
	return h
}

func summaryHints(pairs []string, summary map[string]PairSummary) map[string]PairHint {
	out := make(map[string]PairHint, len(pairs))
	for _, p := range pairs {
		out[p] = hintFor(summary[p])
	}
	return out
}
