package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    photo_url TEXT NOT NULL DEFAULT '',
    bank_account TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS funds (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    created_by TEXT NOT NULL,
    FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS fund_members (
    fund_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (fund_id, user_id),
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL,
    description TEXT NOT NULL,
    amount INTEGER NOT NULL,
    paid_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    date INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS splits (
    transaction_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    PRIMARY KEY (transaction_id, user_id),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_fund_members_user_id ON fund_members(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_fund_id ON transactions(fund_id);
CREATE INDEX IF NOT EXISTS idx_splits_transaction_id ON splits(transaction_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
