package dmip

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/journal"
	"github.com/rustyeddy/aion/metrics"
)

const (
	CaptureSchemaVersion = "aion.dmip.capture_event.v1"

	AccuracyFile = "dmip_llm_accuracy_events.jsonl"
	TaskFile     = "dmip_task_events.jsonl"

	KindAccuracy = "llm_accuracy"
	KindTask     = "task_tracking"
)

type CaptureMetadata struct {
	NonBlocking  bool   `json:"non_blocking"`
	Source       string `json:"source"`
	CheckpointID string `json:"checkpoint_id"`
}

// CaptureRow is one line of a capture journal.
type CaptureRow struct {
	SchemaVersion   string                    `json:"schema_version"`
	EventID         string                    `json:"event_id"`
	EventKind       string                    `json:"event_kind"`
	TimestampUnix   float64                   `json:"timestamp_unix"`
	Checkpoint      string                    `json:"checkpoint"`
	Pair            string                    `json:"pair"`
	ABias           string                    `json:"a_bias,omitempty"`
	BBias           string                    `json:"b_bias,omitempty"`
	LLMConfidence   string                    `json:"llm_confidence,omitempty"`
	Agreement       contracts.Agreement       `json:"agreement"`
	FinalBias       contracts.Bias            `json:"final_bias"`
	FinalConfidence contracts.Confidence      `json:"final_confidence"`
	Decision        *contracts.DecisionRecord `json:"decision,omitempty"`
	TaskStatus      string                    `json:"task_status,omitempty"`
	Metadata        CaptureMetadata           `json:"metadata"`
}

// CaptureReceipt reports the fate of one capture write. Failures are rows
// like any other, never errors.
type CaptureReceipt struct {
	OK        bool   `json:"ok"`
	EventID   string `json:"event_id"`
	EventKind string `json:"event_kind"`
	Pair      string `json:"pair"`
	Path      string `json:"path,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

const (
	CaptureWritten  = "written"
	CaptureFailed   = "failed"
	CaptureDisabled = "disabled"
)

// CaptureLog appends learning events to JSON Lines files under Dir. An
// empty Dir disables writing.
type CaptureLog struct {
	Dir string
	log zerolog.Logger
}

func NewCaptureLog(dir string, l zerolog.Logger) *CaptureLog {
	return &CaptureLog{Dir: dir, log: l}
}

func (c *CaptureLog) path(kind string) string {
	if c == nil || c.Dir == "" {
		return ""
	}
	if kind == KindTask {
		return filepath.Join(c.Dir, TaskFile)
	}
	return filepath.Join(c.Dir, AccuracyFile)
}

// Record stamps the row with a fresh id and appends it. Any failure,
// including a panic in the writer, comes back as a failed receipt.
func (c *CaptureLog) Record(row CaptureRow, now time.Time) (rec CaptureReceipt) {
	row.SchemaVersion = CaptureSchemaVersion
	row.EventID = uuid.NewString()
	row.TimestampUnix = float64(now.UnixNano()) / 1e9
	row.Metadata.NonBlocking = true

	rec = CaptureReceipt{EventID: row.EventID, EventKind: row.EventKind, Pair: row.Pair}
	path := c.path(row.EventKind)
	if path == "" {
		rec.Status = CaptureDisabled
		return rec
	}
	rec.Path = path

	defer func() {
		if v := recover(); v != nil {
			rec.OK = false
			rec.Status = CaptureFailed
			rec.Error = fmt.Sprint(v)
			c.failed(path, row, fmt.Errorf("capture panic: %v", v))
		}
	}()
	if err := journal.AppendJSONL(path, row); err != nil {
		rec.Status = CaptureFailed
		rec.Error = err.Error()
		c.failed(path, row, err)
		return rec
	}
	rec.OK = true
	rec.Status = CaptureWritten
	return rec
}

func (c *CaptureLog) failed(path string, row CaptureRow, err error) {
	metrics.PersistenceFailures.WithLabelValues(metrics.OpCapture).Inc()
	c.log.Warn().Err(err).
		Str("op", metrics.OpCapture).
		Str("path", path).
		Str("checkpoint", row.Checkpoint).
		Str("pair", row.Pair).
		Msg("capture append failed")
}
