// Package journal is the storage medium for paper-trading records: an
// append-only JSON Lines writer, an atomic whole-file JSON writer for
// snapshots, and an optional SQLite mirror of closed paper trades.
package journal

import "time"

// TradeRecord is the closed-trade row mirrored to a Journal.
type TradeRecord struct {
	TradeID      string
	Pair         string
	Direction    string
	StrategyTier string
	Session      string
	Entry        float64
	StopLoss     float64
	TakeProfit   float64
	ClosePrice   float64
	OpenTime     time.Time
	CloseTime    time.Time
	Outcome      string
	PnLPips      float64
	RealizedRR   float64
	Reason       string
}

// Journal receives closed paper trades.
type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }
