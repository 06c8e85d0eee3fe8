package repository

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// NewSQLiteLedger opens (or creates) a SQLite-backed ledger.
// dbPath is the path to the database file (e.g. "./data/ledger.db").
func NewSQLiteLedger(dbPath string) (Ledger, error) {
	// WAL mode and a busy timeout for concurrent readers.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLedger] Initialized with database: %s", dbPath)
	return &sqlLedger{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		std_plan_name TEXT NOT NULL DEFAULT 'none',
		std_max_uses INTEGER NOT NULL DEFAULT 0,
		std_used_uses INTEGER NOT NULL DEFAULT 0,
		cards_plan_name TEXT NOT NULL DEFAULT 'none',
		cards_max_uses INTEGER NOT NULL DEFAULT 0,
		cards_used_uses INTEGER NOT NULL DEFAULT 0,
		invalid_key_attempts INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS redemption_keys (
		code TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		max_uses INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pools (
		kind TEXT NOT NULL,
		name_key TEXT NOT NULL,
		name TEXT NOT NULL,
		usage_message TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kind, name_key)
	);
	CREATE TABLE IF NOT EXISTS pool_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		name_key TEXT NOT NULL,
		label TEXT NOT NULL,
		attachment_ref TEXT NOT NULL DEFAULT '',
		attachment_kind TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_pool_items_pool ON pool_items(kind, name_key, id);
	CREATE TABLE IF NOT EXISTS bans (
		user_id INTEGER PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS admins (
		user_id INTEGER PRIMARY KEY
	);
	`
	_, err := db.Exec(query)
	return err
}
