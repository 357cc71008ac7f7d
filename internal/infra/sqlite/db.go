// Package sqlite implements the durable ledger store on embedded SQLite.
// It is the only component allowed to touch account balances; every mutation
// is either a single conditional UPDATE or a transaction that also writes the
// audit trail.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and the ledger operations.
type DB struct {
	db *sql.DB
}

// Open creates (or opens) the ledger database inside dir and applies the
// schema migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "listforge.db")

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc/sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY on concurrent conditional updates.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			balance       INTEGER NOT NULL DEFAULT 0 CHECK(balance >= 0),
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS vouchers (
			code        TEXT PRIMARY KEY,
			amount      INTEGER NOT NULL CHECK(amount > 0),
			consumed    INTEGER NOT NULL DEFAULT 0,
			consumed_by TEXT,
			consumed_at TEXT,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vouchers_consumed ON vouchers(consumed)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account    TEXT NOT NULL,
			type       TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			balance    INTEGER NOT NULL,
			reference  TEXT DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account, id)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
