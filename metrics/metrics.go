// Package metrics holds the Prometheus collectors for the paper runtime and
// the checkpoint pipeline.
//
//	aion_paper_submissions_total{status}      accepted | rejected
//	aion_paper_events_total{event_type}       one per appended lifecycle event
//	aion_persistence_failures_total{op}       swallowed I/O failures
//	aion_dmip_checkpoints_total{checkpoint}   completed checkpoint runs
//	aion_dmip_pair_agreement_total{agreement} per-pair synthesis outcome
//
// Collectors are registered with the default registry in init. Nothing here
// serves them; the CLI can dump them to a node_exporter textfile, and an
// embedding process exposes the registry if it wants to.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PaperSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aion_paper_submissions_total",
			Help: "Paper trade submissions by result",
		},
		[]string{"status"},
	)

	PaperEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aion_paper_events_total",
			Help: "Paper trade lifecycle events appended",
		},
		[]string{"event_type"},
	)

	// Incremented whenever a write is swallowed to keep the caller's
	// decision path alive.
	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aion_persistence_failures_total",
			Help: "Non-fatal persistence failures by operation",
		},
		[]string{"op"},
	)

	DMIPCheckpoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aion_dmip_checkpoints_total",
			Help: "Checkpoint runs completed",
		},
		[]string{"checkpoint"},
	)

	DMIPPairAgreement = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aion_dmip_pair_agreement_total",
			Help: "Per-pair advisory agreement outcomes",
		},
		[]string{"agreement"},
	)
)

func init() {
	prometheus.MustRegister(
		PaperSubmissions,
		PaperEvents,
		PersistenceFailures,
		DMIPCheckpoints,
		DMIPPairAgreement,
	)
}

// Persistence op labels.
const (
	OpEventAppend = "event_append"
	OpSnapshot    = "snapshot"
	OpRestore     = "restore"
	OpJournal     = "journal_mirror"
	OpCapture     = "capture"
	OpWeights     = "weights"
	OpSummary     = "capture_summary"
	OpStateMeta   = "state_meta"
)
