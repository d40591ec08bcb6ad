package dmip

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/journal"
)

func TestCaptureRecordStampsRow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewCaptureLog(dir, zerolog.Nop())
	rec := c.Record(CaptureRow{EventKind: KindAccuracy, Pair: "EUR/USD", Agreement: contracts.AgreementAgree}, fixedNow)
	require.True(t, rec.OK)
	assert.Equal(t, filepath.Join(dir, AccuracyFile), rec.Path)

	rows, skipped, err := journal.ReadJSONL(rec.Path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 1)

	row := gjson.ParseBytes(rows[0])
	assert.Equal(t, CaptureSchemaVersion, row.Get("schema_version").String())
	assert.True(t, row.Get("metadata.non_blocking").Bool())
	assert.Equal(t, rec.EventID, row.Get("event_id").String())
	_, err = uuid.Parse(rec.EventID)
	assert.NoError(t, err)
	assert.InDelta(t, float64(fixedNow.Unix()), row.Get("timestamp_unix").Float(), 1e-3)
}

func TestCaptureRecordDisabled(t *testing.T) {
	t.Parallel()

	var nilLog *CaptureLog
	rec := nilLog.Record(CaptureRow{EventKind: KindTask, Pair: "EUR/USD"}, fixedNow)
	assert.False(t, rec.OK)
	assert.Equal(t, CaptureDisabled, rec.Status)
	assert.NotEmpty(t, rec.EventID)
}

func TestCaptureSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewCaptureLog(dir, zerolog.Nop())
	for _, a := range []contracts.Agreement{
		contracts.AgreementAgree, contracts.AgreementAgree, contracts.AgreementAgree, contracts.AgreementDisagree,
	} {
		c.Record(CaptureRow{EventKind: KindAccuracy, Pair: "EUR/USD", Agreement: a, FinalBias: contracts.BiasBullish}, fixedNow)
	}
	c.Record(CaptureRow{EventKind: KindTask, Pair: "EUR/USD", TaskStatus: TaskBiasPublished}, fixedNow)
	c.Record(CaptureRow{EventKind: KindAccuracy, Pair: "GBP/USD", Agreement: contracts.AgreementDisagree}, fixedNow)

	summary, err := CaptureSummary{Dir: dir}.Summary(context.Background())
	require.NoError(t, err)

	eur := summary["EUR/USD"]
	assert.Equal(t, 4, eur.Observations)
	assert.Equal(t, 3, eur.Agree)
	assert.Equal(t, 1, eur.Disagree)
	assert.Equal(t, "BULLISH", eur.LastBias)
	assert.InDelta(t, 0.75, eur.AgreeRate(), 1e-9)

	hints := summaryHints([]string{"EUR/USD", "GBP/USD", "USD/JPY"}, summary)
	assert.Equal(t, HintAdvisorsConsistent, hints["EUR/USD"].Hint)
	assert.Equal(t, HintAdvisorsSplit, hints["GBP/USD"].Hint)
	assert.Equal(t, HintNoHistory, hints["USD/JPY"].Hint)
}

func TestCaptureSummaryMissingFile(t *testing.T) {
	t.Parallel()

	summary, err := CaptureSummary{Dir: t.TempDir()}.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestDecodeConsultation(t *testing.T) {
	t.Parallel()

	got, err := DecodeConsultation(map[string]any{
		"eurusd": map[string]any{"A_bias": "BULLISH", "B_bias": "BULLISH", "confidence": "high", "key_levels": []any{1.08, 1.1}},
	})
	require.NoError(t, err)
	ap, ok := got["EUR/USD"]
	require.True(t, ok)
	assert.Equal(t, "BULLISH", ap.ABias)
	assert.Equal(t, "high", ap.Confidence)
	assert.Len(t, ap.KeyLevels, 2)

	_, err = DecodeConsultation(map[string]any{"EUR/USD": "bullish"})
	assert.Error(t, err)
}

func TestParseCheckpoint(t *testing.T) {
	t.Parallel()

	cp, err := ParseCheckpoint(" NEW_YORK ")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionNewYork, cp)

	_, err = ParseCheckpoint("")
	assert.ErrorIs(t, err, ErrUnknownCheckpoint)
}
