package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const selectTrade = `
	SELECT trade_id, pair, direction, strategy_tier, session, entry, stop_loss, take_profit,
	       close_price, open_time, close_time, outcome, pnl_pips, realized_rr, reason
	FROM paper_trades`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Pair,
		&rec.Direction,
		&rec.StrategyTier,
		&rec.Session,
		&rec.Entry,
		&rec.StopLoss,
		&rec.TakeProfit,
		&rec.ClosePrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Outcome,
		&rec.PnLPips,
		&rec.RealizedRR,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single closed trade by id.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	rec, err := scanTrade(j.db.QueryRow(selectTrade+` WHERE trade_id = ?`, tradeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(selectTrade+`
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// OutcomeCounts tallies WIN/LOSS/BREAKEVEN across every recorded trade.
func (j *SQLite) OutcomeCounts() (map[string]int, error) {
	rows, err := j.db.Query(`SELECT outcome, COUNT(*) FROM paper_trades GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}
