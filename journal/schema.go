package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	client_order_id TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	order_type TEXT NOT NULL,
	time_in_force TEXT NOT NULL,
	qty REAL,
	notional REAL,
	estimated_price REAL,
	status TEXT NOT NULL,
	broker_order_id TEXT NOT NULL DEFAULT '',
	reject_type TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_orders_time ON orders(time);
CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_order_id);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	signature TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	equity REAL,
	cash REAL,
	buying_power REAL,
	positions TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
