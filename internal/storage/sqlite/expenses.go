package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"despesas/internal/models"
	"despesas/internal/storage"
)

// ExpenseStore is the SQLite ledger backend. Amounts are stored as their
// decimal string form to avoid float rounding.
type ExpenseStore struct {
	conn *sql.DB
}

// Load returns all expense records.
func (s *ExpenseStore) Load() ([]models.Expense, error) {
	records, err := loadExpenses(s.conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return records, nil
}

// Update applies fn to the records inside a transaction and rewrites the
// table from the result.
func (s *ExpenseStore) Update(fn func(*[]models.Expense) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	records, err := loadExpenses(tx)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if err := fn(&records); err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM expenses"); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	for _, e := range records {
		if _, err := tx.Exec(
			"INSERT INTO expenses (record_id, owner_identity, description, amount, category, occurred_at) VALUES (?, ?, ?, ?, ?, ?)",
			e.RecordID, e.Owner, e.Description, e.Amount.String(), e.Category, e.OccurredAt,
		); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return nil
}

func loadExpenses(q querier) ([]models.Expense, error) {
	rows, err := q.Query("SELECT record_id, owner_identity, description, amount, category, occurred_at FROM expenses")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Expense
	for rows.Next() {
		var (
			e      models.Expense
			amount string
			date   time.Time
		)
		if err := rows.Scan(&e.RecordID, &e.Owner, &e.Description, &amount, &e.Category, &date); err != nil {
			return nil, err
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		e.OccurredAt = date
		records = append(records, e)
	}
	return records, rows.Err()
}
