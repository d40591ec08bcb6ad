package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DecisionRecordSchemaVersion = "aion.decision_record.v1"

type DecisionKind string

const (
	DecisionCheckpoint DecisionKind = "checkpoint_bias"
	DecisionSubmission DecisionKind = "paper_trade_submission"
)

// DecisionRecord captures a single decision for later review and learning.
type DecisionRecord struct {
	SchemaVersion string       `json:"schema_version"`
	DecisionID    string       `json:"decision_id"`
	Kind          DecisionKind `json:"kind"`
	CreatedAt     time.Time    `json:"created_at"`

	Checkpoint string     `json:"checkpoint,omitempty"`
	Pair       string     `json:"pair"`
	Bias       Bias       `json:"bias,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
	Agreement  Agreement  `json:"agreement,omitempty"`

	Accepted   *bool    `json:"accepted,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

func (d DecisionRecord) Validate() error {
	var errs []error
	if d.SchemaVersion != DecisionRecordSchemaVersion {
		errs = append(errs, fmt.Errorf("schema_version must be %q, got %q", DecisionRecordSchemaVersion, d.SchemaVersion))
	}
	if strings.TrimSpace(d.DecisionID) == "" {
		errs = append(errs, errors.New("decision_id is required"))
	}
	switch d.Kind {
	case DecisionCheckpoint:
		if !d.Bias.Valid() || !d.Confidence.Valid() {
			errs = append(errs, errors.New("checkpoint decisions need a valid bias and confidence"))
		}
		if !d.Agreement.Valid() {
			errs = append(errs, fmt.Errorf("agreement %q is not recognised", d.Agreement))
		}
	case DecisionSubmission:
		if d.Accepted == nil {
			errs = append(errs, errors.New("submission decisions need accepted"))
		}
	default:
		errs = append(errs, fmt.Errorf("kind %q is not recognised", d.Kind))
	}
	if strings.TrimSpace(d.Pair) == "" {
		errs = append(errs, errors.New("pair is required"))
	}
	return errors.Join(errs...)
}
