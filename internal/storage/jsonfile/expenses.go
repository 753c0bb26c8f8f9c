package jsonfile

import (
	"despesas/internal/models"
)

// ExpenseStore is the JSON-file ledger backend. The on-disk form is a
// single array of expense records.
type ExpenseStore struct {
	file *file
}

// NewExpenseStore creates a ledger store backed by the JSON file at path.
func NewExpenseStore(path string) (*ExpenseStore, error) {
	f, err := newFile(path)
	if err != nil {
		return nil, err
	}
	return &ExpenseStore{file: f}, nil
}

// Load returns all expense records. A missing file yields an empty slice.
func (s *ExpenseStore) Load() ([]models.Expense, error) {
	var records []models.Expense
	err := s.file.withLock(false, func() error {
		return s.file.read(&records)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Update applies fn under the store lock and persists the result.
func (s *ExpenseStore) Update(fn func(*[]models.Expense) error) error {
	return s.file.withLock(true, func() error {
		var records []models.Expense
		if err := s.file.read(&records); err != nil {
			return err
		}
		if err := fn(&records); err != nil {
			return err
		}
		return s.file.write(records)
	})
}
