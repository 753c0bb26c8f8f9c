package sqlite

import (
	"database/sql"
	"fmt"

	"despesas/internal/models"
	"despesas/internal/storage"
)

// CredentialStore is the SQLite credential backend.
type CredentialStore struct {
	conn *sql.DB
}

// Load returns the full credential mapping.
func (s *CredentialStore) Load() (map[string]models.Credential, error) {
	creds, err := loadCredentials(s.conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return creds, nil
}

// Update applies fn to the mapping inside a transaction and rewrites the
// table from the result.
func (s *CredentialStore) Update(fn func(map[string]models.Credential) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	creds, err := loadCredentials(tx)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if err := fn(creds); err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM credentials"); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	for _, c := range creds {
		if _, err := tx.Exec(
			"INSERT INTO credentials (identity, secret_hash, approved, display_name) VALUES (?, ?, ?, ?)",
			c.Identity, c.SecretHash, c.Approved, c.DisplayName,
		); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func loadCredentials(q querier) (map[string]models.Credential, error) {
	rows, err := q.Query("SELECT identity, secret_hash, approved, display_name FROM credentials")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := make(map[string]models.Credential)
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.Identity, &c.SecretHash, &c.Approved, &c.DisplayName); err != nil {
			return nil, err
		}
		creds[c.Identity] = c
	}
	return creds, rows.Err()
}
