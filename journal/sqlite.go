package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordTrade inserts a closed trade. A trade id can only be recorded once.
func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO paper_trades
		(trade_id, pair, direction, strategy_tier, session, entry, stop_loss, take_profit,
		 close_price, open_time, close_time, outcome, pnl_pips, realized_rr, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Pair, t.Direction, t.StrategyTier, t.Session,
		t.Entry, t.StopLoss, t.TakeProfit, t.ClosePrice,
		t.OpenTime.UTC(), t.CloseTime.UTC(), t.Outcome, t.PnLPips, t.RealizedRR, t.Reason,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
