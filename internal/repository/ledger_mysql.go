package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// NewMySQLLedger opens a MySQL-backed ledger. Used when several bot
// frontends share one database; SQLite is the default for single-node runs.
func NewMySQLLedger(dsn string) (Ledger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLLedger] Initialized")
	return &sqlLedger{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			std_plan_name VARCHAR(128) NOT NULL DEFAULT 'none',
			std_max_uses INT NOT NULL DEFAULT 0,
			std_used_uses INT NOT NULL DEFAULT 0,
			cards_plan_name VARCHAR(128) NOT NULL DEFAULT 'none',
			cards_max_uses INT NOT NULL DEFAULT 0,
			cards_used_uses INT NOT NULL DEFAULT 0,
			invalid_key_attempts INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS redemption_keys (
			code VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			plan_name VARCHAR(128) NOT NULL,
			max_uses INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pools (
			kind VARCHAR(16) NOT NULL,
			name_key VARCHAR(128) NOT NULL,
			name VARCHAR(128) NOT NULL,
			usage_message TEXT NOT NULL,
			PRIMARY KEY (kind, name_key)
		)`,
		`CREATE TABLE IF NOT EXISTS pool_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			name_key VARCHAR(128) NOT NULL,
			label TEXT NOT NULL,
			attachment_ref VARCHAR(256) NOT NULL DEFAULT '',
			attachment_kind VARCHAR(16) NOT NULL DEFAULT '',
			INDEX idx_pool_items_pool (kind, name_key, id)
		)`,
		`CREATE TABLE IF NOT EXISTS bans (
			user_id BIGINT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			user_id BIGINT PRIMARY KEY
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
