package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection. The busy timeout makes
// concurrent writers queue instead of failing immediately.
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_loc=UTC", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the necessary tables if they don't exist
func (db *DB) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			default_currency TEXT NOT NULL,
			report_currency TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			is_default BOOLEAN NOT NULL DEFAULT 0,
			is_archived BOOLEAN NOT NULL DEFAULT 0,
			UNIQUE(account_id, kind, name)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			kind TEXT NOT NULL,
			amount_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			amount_eur REAL NOT NULL,
			amount_usd REAL NOT NULL,
			rate_eur REAL NOT NULL,
			rate_usd REAL NOT NULL,
			category_id INTEGER REFERENCES categories(id),
			note TEXT NOT NULL DEFAULT '',
			at_time TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			related_debt_id TEXT,
			reverses_transaction_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_time
			ON transactions(account_id, at_time)`,
		`CREATE TABLE IF NOT EXISTS debts (
			id TEXT PRIMARY KEY,
			creditor_id INTEGER NOT NULL REFERENCES accounts(id),
			debtor_id INTEGER NOT NULL REFERENCES accounts(id),
			amount_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			amount_eur REAL NOT NULL,
			amount_usd REAL NOT NULL,
			rate_eur REAL NOT NULL,
			rate_usd REAL NOT NULL,
			category_id INTEGER REFERENCES categories(id),
			note TEXT NOT NULL DEFAULT '',
			related_transaction_id TEXT,
			is_settled BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_debts_parties
			ON debts(creditor_id, debtor_id, is_settled)`,
		`CREATE TABLE IF NOT EXISTS fx_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			currency TEXT NOT NULL,
			base TEXT NOT NULL,
			rate REAL NOT NULL,
			date TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(currency, base, date)
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}
