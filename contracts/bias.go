package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const BiasSheetSchemaVersion = "aion.daily_bias_sheet.v1"

// MaxKeyLevels caps PairBias.KeyLevels.
const MaxKeyLevels = 8

type PairBias struct {
	Pair       string     `json:"pair"`
	Bias       Bias       `json:"bias"`
	Confidence Confidence `json:"confidence"`
	KeyLevels  []float64  `json:"key_levels,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Validate truncates KeyLevels to MaxKeyLevels as a side effect of
// normalisation and reports closed-set violations.
func (b *PairBias) Validate() error {
	var errs []error
	if strings.TrimSpace(b.Pair) == "" {
		errs = append(errs, errors.New("pair is required"))
	}
	if !b.Bias.Valid() {
		errs = append(errs, fmt.Errorf("bias %q is not recognised", b.Bias))
	}
	if !b.Confidence.Valid() {
		errs = append(errs, fmt.Errorf("confidence %q is not recognised", b.Confidence))
	}
	if len(b.KeyLevels) > MaxKeyLevels {
		b.KeyLevels = b.KeyLevels[:MaxKeyLevels]
	}
	return errors.Join(errs...)
}

type BiasSheetMetadata struct {
	GeneratedAt           time.Time `json:"generated_at"`
	ProfileID             string    `json:"profile_id,omitempty"`
	Environment           string    `json:"environment,omitempty"`
	WeightsSnapshotID     string    `json:"weights_snapshot_id,omitempty"`
	RiskInvariantsMutated bool      `json:"risk_invariants_mutated"`
	Source                string    `json:"source"`
}

// DailyBiasSheet is the output of one checkpoint run.
type DailyBiasSheet struct {
	SchemaVersion     string               `json:"schema_version"`
	CheckpointID      string               `json:"checkpoint_id"`
	Session           Session              `json:"session"`
	RiskEnvironment   RiskEnvironment      `json:"risk_environment"`
	TradingConfidence Confidence           `json:"trading_confidence"`
	Pairs             []PairBias           `json:"pairs"`
	AvoidEvents       []string             `json:"avoid_events,omitempty"`
	LLMAgreement      map[string]Agreement `json:"llm_agreement"`
	Metadata          BiasSheetMetadata    `json:"metadata"`
}

func (s *DailyBiasSheet) Validate() error {
	var errs []error
	if s.SchemaVersion != BiasSheetSchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", BiasSheetSchemaVersion, s.SchemaVersion))
	}
	if strings.TrimSpace(s.CheckpointID) == "" {
		errs = append(errs, errors.New("checkpoint_id is required"))
	}
	if !s.Session.Valid() {
		errs = append(errs, fmt.Errorf("session %q is not recognised", s.Session))
	}
	if !s.RiskEnvironment.Valid() {
		errs = append(errs, fmt.Errorf("risk_environment %q is not recognised", s.RiskEnvironment))
	}
	if !s.TradingConfidence.Valid() {
		errs = append(errs, fmt.Errorf("trading_confidence %q is not recognised", s.TradingConfidence))
	}
	for i := range s.Pairs {
		if err := s.Pairs[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("pairs[%d]: %w", i, err))
		}
	}
	for pair, a := range s.LLMAgreement {
		if !a.Valid() {
			errs = append(errs, fmt.Errorf("llm_agreement[%s]: %q is not recognised", pair, a))
		}
	}
	if s.Metadata.RiskInvariantsMutated {
		errs = append(errs, errors.New("metadata.risk_invariants_mutated must be false"))
	}
	return errors.Join(errs...)
}
