package postgres

// Schema creates every table the store needs. Applied by Migrate; all
// statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         BIGSERIAL PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id             BIGSERIAL PRIMARY KEY,
	account_id     BIGINT NOT NULL REFERENCES accounts(id),
	kind           TEXT NOT NULL,
	amount         NUMERIC(20, 8) NOT NULL,
	balance_before NUMERIC(20, 8) NOT NULL,
	balance_after  NUMERIC(20, 8) NOT NULL,
	reference      TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account
	ON ledger_entries (account_id, created_at, id);

CREATE TABLE IF NOT EXISTS trades (
	id         BIGSERIAL PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES accounts(id),
	asset      TEXT NOT NULL,
	side       TEXT NOT NULL,
	size       NUMERIC(20, 8) NOT NULL,
	price      NUMERIC(20, 8) NOT NULL,
	total      NUMERIC(20, 8) NOT NULL,
	reference  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_asset_side ON trades (asset, side);

CREATE TABLE IF NOT EXISTS withdrawal_requests (
	id           BIGSERIAL PRIMARY KEY,
	account_id   BIGINT NOT NULL REFERENCES accounts(id),
	amount       NUMERIC(20, 8) NOT NULL,
	status       TEXT NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_account
	ON withdrawal_requests (account_id, requested_at);

CREATE TABLE IF NOT EXISTS strategies (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL,
	category       TEXT NOT NULL,
	risk_level     TEXT NOT NULL,
	daily_rate     NUMERIC(12, 8) NOT NULL,
	min_investment NUMERIC(20, 8) NOT NULL,
	max_investment NUMERIC(20, 8) NOT NULL,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS strategy_subscriptions (
	id              BIGSERIAL PRIMARY KEY,
	account_id      BIGINT NOT NULL REFERENCES accounts(id),
	strategy_id     BIGINT NOT NULL REFERENCES strategies(id),
	invested_amount NUMERIC(20, 8) NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	subscribed_at   TIMESTAMPTZ NOT NULL,
	unsubscribed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_strategy_subscriptions_account
	ON strategy_subscriptions (account_id, strategy_id) WHERE is_active;
`
