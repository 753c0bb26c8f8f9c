// Package gateway is the authorization boundary in front of the ledger.
// Every operation is scoped to the identity in the current session;
// callers never supply an owner, so ownership cannot be spoofed.
package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"despesas/internal/ledger"
	"despesas/internal/models"
	"despesas/internal/session"
)

// Gateway scopes ledger access to the current session's identity.
type Gateway struct {
	ledger   *ledger.Ledger
	sessions *session.Context
}

// New creates a gateway over the given ledger and session context.
func New(l *ledger.Ledger, sessions *session.Context) *Gateway {
	return &Gateway{ledger: l, sessions: sessions}
}

// Append creates an expense record owned by the current identity.
func (g *Gateway) Append(description string, amount decimal.Decimal, category string, occurredAt time.Time) (string, error) {
	s, ok := g.sessions.Current()
	if !ok {
		return "", session.ErrNotAuthenticated
	}
	return g.ledger.Append(s.Identity, description, amount, category, occurredAt)
}

// Remove deletes one of the current identity's records by id.
func (g *Gateway) Remove(recordID string) error {
	s, ok := g.sessions.Current()
	if !ok {
		return session.ErrNotAuthenticated
	}
	return g.ledger.Remove(recordID, s.Identity)
}

// List returns the current identity's records, oldest first.
func (g *Gateway) List() ([]models.Expense, error) {
	s, ok := g.sessions.Current()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	return g.ledger.ListFor(s.Identity)
}
