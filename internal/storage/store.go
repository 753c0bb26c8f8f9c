// Package storage provides abstractions for persistent data storage.
package storage

import (
	"errors"

	"despesas/internal/models"
)

var (
	// ErrStoreBusy is returned when the store lock cannot be acquired in time.
	ErrStoreBusy = errors.New("store is locked by another process")
	// ErrStorageUnavailable is returned when the backing medium cannot be
	// read or written. No further operation can proceed without it.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// CredentialBackend persists the identity -> credential mapping.
// A missing store yields an empty mapping, not an error.
type CredentialBackend interface {
	// Load returns the full credential mapping.
	Load() (map[string]models.Credential, error)

	// Update applies fn to the current mapping under an exclusive lock and
	// persists the result atomically. If fn returns an error, nothing is
	// written and that error is returned unchanged.
	Update(fn func(map[string]models.Credential) error) error
}

// LedgerBackend persists the expense record collection.
type LedgerBackend interface {
	// Load returns all expense records.
	Load() ([]models.Expense, error)

	// Update applies fn to the current records under an exclusive lock and
	// persists the result atomically. If fn returns an error, nothing is
	// written and that error is returned unchanged.
	Update(fn func(*[]models.Expense) error) error
}
