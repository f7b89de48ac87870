package sqlite

// Schema creates every table the store needs. All statements are idempotent
// so the schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id     INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	amount         TEXT NOT NULL,
	balance_before TEXT NOT NULL,
	balance_after  TEXT NOT NULL,
	reference      TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account
	ON ledger_entries (account_id, created_at, id);

CREATE TABLE IF NOT EXISTS trades (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	asset      TEXT NOT NULL,
	side       TEXT NOT NULL,
	size       TEXT NOT NULL,
	price      TEXT NOT NULL,
	total      TEXT NOT NULL,
	reference  TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_asset_side ON trades (asset, side);

CREATE TABLE IF NOT EXISTS withdrawal_requests (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id   INTEGER NOT NULL,
	amount       TEXT NOT NULL,
	status       TEXT NOT NULL,
	requested_at TIMESTAMP NOT NULL,
	processed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_account
	ON withdrawal_requests (account_id, requested_at);

CREATE TABLE IF NOT EXISTS strategies (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL,
	category       TEXT NOT NULL,
	risk_level     TEXT NOT NULL,
	daily_rate     TEXT NOT NULL,
	min_investment TEXT NOT NULL,
	max_investment TEXT NOT NULL,
	is_active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS strategy_subscriptions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id      INTEGER NOT NULL,
	strategy_id     INTEGER NOT NULL,
	invested_amount TEXT NOT NULL,
	is_active       INTEGER NOT NULL DEFAULT 1,
	subscribed_at   TIMESTAMP NOT NULL,
	unsubscribed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_strategy_subscriptions_account
	ON strategy_subscriptions (account_id, strategy_id, is_active);
`
