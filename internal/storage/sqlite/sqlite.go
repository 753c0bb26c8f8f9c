// Package sqlite implements the storage backends on top of a SQLite
// database. It is an alternative to the jsonfile backend for
// deployments that prefer a single database file; mutations run inside
// one transaction, which gives the same all-or-nothing write guarantee.
package sqlite

import (
	"database/sql"
	"fmt"

	// Import sqlite driver
	_ "modernc.org/sqlite"

	"despesas/internal/storage"
)

// DB wraps a sql.DB connection shared by both stores.
type DB struct {
	conn *sql.DB
}

// New opens a database connection and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			identity TEXT PRIMARY KEY,
			secret_hash TEXT NOT NULL,
			approved INTEGER NOT NULL DEFAULT 0,
			display_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			record_id TEXT PRIMARY KEY,
			owner_identity TEXT NOT NULL,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			occurred_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_owner ON expenses(owner_identity)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Credentials returns the credential backend view of the database.
func (db *DB) Credentials() *CredentialStore {
	return &CredentialStore{conn: db.conn}
}

// Expenses returns the ledger backend view of the database.
func (db *DB) Expenses() *ExpenseStore {
	return &ExpenseStore{conn: db.conn}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
