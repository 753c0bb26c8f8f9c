// Package ledger owns the expense record collection: record creation,
// owner-scoped reads, and deletion including the admin cascade.
package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"despesas/internal/models"
	"despesas/internal/storage"
)

var (
	// ErrInvalidAmount is returned when an expense amount is negative.
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrNotFound is returned when no record with the given id is owned
	// by the given identity.
	ErrNotFound = errors.New("expense record not found")
)

// Ledger provides expense record operations over a storage backend.
type Ledger struct {
	backend storage.LedgerBackend
}

// New creates a ledger over the given backend.
func New(backend storage.LedgerBackend) *Ledger {
	return &Ledger{backend: backend}
}

// Append creates a new record for owner and returns its record id.
// Record ids are random UUIDs, so two appends in the same instant never
// collide.
func (l *Ledger) Append(owner, description string, amount decimal.Decimal, category string, occurredAt time.Time) (string, error) {
	if amount.IsNegative() {
		return "", ErrInvalidAmount
	}

	record := models.Expense{
		RecordID:    uuid.NewString(),
		Owner:       owner,
		Description: description,
		Amount:      amount,
		Category:    category,
		OccurredAt:  occurredAt,
	}

	err := l.backend.Update(func(records *[]models.Expense) error {
		*records = append(*records, record)
		return nil
	})
	if err != nil {
		return "", err
	}
	return record.RecordID, nil
}

// Remove deletes the record with recordID, but only when it is owned by
// owner. Guessing another user's record id yields ErrNotFound, identical
// to a nonexistent id.
func (l *Ledger) Remove(recordID, owner string) error {
	return l.backend.Update(func(records *[]models.Expense) error {
		for i, r := range *records {
			if r.RecordID == recordID && r.Owner == owner {
				*records = append((*records)[:i], (*records)[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

// ListFor returns owner's records ordered by occurrence date, then by
// record id for records on the same date. No records is an empty slice,
// not an error.
func (l *Ledger) ListFor(owner string) ([]models.Expense, error) {
	all, err := l.backend.Load()
	if err != nil {
		return nil, err
	}

	records := make([]models.Expense, 0)
	for _, r := range all {
		if r.Owner == owner {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].OccurredAt.Equal(records[j].OccurredAt) {
			return records[i].OccurredAt.Before(records[j].OccurredAt)
		}
		return records[i].RecordID < records[j].RecordID
	})
	return records, nil
}

// CascadeDeleteOwner removes every record owned by owner and returns the
// number removed. A second call for the same identity removes nothing
// and returns 0.
func (l *Ledger) CascadeDeleteOwner(owner string) (int, error) {
	removed := 0
	err := l.backend.Update(func(records *[]models.Expense) error {
		kept := (*records)[:0]
		for _, r := range *records {
			if r.Owner == owner {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		*records = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
