package journal

const Schema = `
CREATE TABLE IF NOT EXISTS paper_trades (
	trade_id TEXT PRIMARY KEY,
	pair TEXT NOT NULL,
	direction TEXT NOT NULL,
	strategy_tier TEXT NOT NULL,
	session TEXT NOT NULL,
	entry REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	close_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	outcome TEXT NOT NULL,
	pnl_pips REAL NOT NULL,
	realized_rr REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paper_trades_close_time ON paper_trades(close_time);
`
