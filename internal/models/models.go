package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credential is the stored account record for one identity.
type Credential struct {
	Identity    string `json:"identity"`
	SecretHash  string `json:"secret_hash"`
	Approved    bool   `json:"approved"`
	DisplayName string `json:"display_name,omitempty"`
}

// Expense represents a single expense record owned by one identity.
type Expense struct {
	RecordID    string          `json:"record_id"`
	Owner       string          `json:"owner_identity"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Session is the currently authenticated identity for this process.
type Session struct {
	Identity string
	IsAdmin  bool
}
