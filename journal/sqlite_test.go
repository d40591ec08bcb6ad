package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleTrade(id string, closeT time.Time) TradeRecord {
	return TradeRecord{
		TradeID:      id,
		Pair:         "EUR/USD",
		Direction:    "buy",
		StrategyTier: "tier3_smc_intraday",
		Session:      "london",
		Entry:        1.1000,
		StopLoss:     1.0950,
		TakeProfit:   1.1110,
		ClosePrice:   1.1110,
		OpenTime:     closeT.Add(-time.Hour),
		CloseTime:    closeT,
		Outcome:      "WIN",
		PnLPips:      110,
		RealizedRR:   2.2,
		Reason:       "tp_hit",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='paper_trades'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "paper_trades", name)
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	rec := sampleTrade("T1", time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC))
	require.NoError(t, j.RecordTrade(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		tradeID   string
		pair      string
		entry     float64
		closeTime time.Time
		outcome   string
		rr        float64
	)
	err = db.QueryRow(`
        SELECT trade_id, pair, entry, close_time, outcome, realized_rr
        FROM paper_trades LIMIT 1`).Scan(&tradeID, &pair, &entry, &closeTime, &outcome, &rr)
	require.NoError(t, err)

	assert.Equal(t, rec.TradeID, tradeID)
	assert.Equal(t, rec.Pair, pair)
	assert.InDelta(t, rec.Entry, entry, 1e-9)
	assert.True(t, closeTime.Equal(rec.CloseTime))
	assert.Equal(t, "WIN", outcome)
	assert.InDelta(t, 2.2, rr, 1e-9)
}

func TestSQLiteRecordTradeDuplicateRejected(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleTrade("T1", time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC))
	require.NoError(t, j.RecordTrade(rec))
	assert.Error(t, j.RecordTrade(rec))
}

func TestNopJournal(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordTrade(TradeRecord{}))
	assert.NoError(t, j.Close())
}
