// Package accounts orchestrates registration, approval and
// authentication against the credential store.
package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"despesas/internal/auth"
	"despesas/internal/ledger"
	"despesas/internal/models"
	"despesas/internal/session"
	"despesas/internal/storage"
)

var (
	// ErrDuplicateIdentity is returned when registering an identity that
	// already exists.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrUnknownIdentity is returned when the identity does not exist.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrNotApproved is returned when the identity exists but has not
	// been approved by the administrator yet.
	ErrNotApproved = errors.New("registration pending administrator approval")
	// ErrBadSecret is returned when the password does not match.
	ErrBadSecret = errors.New("invalid password")
	// ErrAlreadyApproved is returned when approving an identity that is
	// already approved. Callers treat it as a notice, not a failure.
	ErrAlreadyApproved = errors.New("identity already approved")
)

// Manager implements the account lifecycle: register, authenticate,
// approve, delete. It owns the session context for this process.
type Manager struct {
	creds    storage.CredentialBackend
	ledger   *ledger.Ledger
	sessions *session.Context

	adminIdentity string
	adminSecret   string
	logger        *slog.Logger
}

// NewManager creates a lifecycle manager. adminIdentity and adminSecret
// come from deployment configuration, never from the store.
func NewManager(creds storage.CredentialBackend, l *ledger.Ledger, sessions *session.Context, adminIdentity, adminSecret string) *Manager {
	return &Manager{
		creds:         creds,
		ledger:        l,
		sessions:      sessions,
		adminIdentity: adminIdentity,
		adminSecret:   adminSecret,
		logger:        slog.Default(),
	}
}

// Sessions exposes the session context to the presentation layer.
func (m *Manager) Sessions() *session.Context {
	return m.sessions
}

// EnsureAdmin inserts the administrator credential if it is absent.
// Idempotent; called once at process start. An existing credential is
// left untouched.
func (m *Manager) EnsureAdmin() error {
	return m.creds.Update(func(creds map[string]models.Credential) error {
		if _, ok := creds[m.adminIdentity]; ok {
			return nil
		}
		hash, err := auth.HashPassword(m.adminSecret)
		if err != nil {
			return err
		}
		creds[m.adminIdentity] = models.Credential{
			Identity:    m.adminIdentity,
			SecretHash:  hash,
			Approved:    true,
			DisplayName: "Administrator",
		}
		m.logger.Info("administrator account created", "identity", m.adminIdentity)
		return nil
	})
}

// Register creates a new credential awaiting approval and reports
// whether the account is immediately approved. Identity comparison is
// case-sensitive exact match.
func (m *Manager) Register(identity, secret, displayName string) (bool, error) {
	approved := identity == m.adminIdentity
	err := m.creds.Update(func(creds map[string]models.Credential) error {
		if _, ok := creds[identity]; ok {
			return ErrDuplicateIdentity
		}
		hash, err := auth.HashPassword(secret)
		if err != nil {
			return err
		}
		creds[identity] = models.Credential{
			Identity:    identity,
			SecretHash:  hash,
			Approved:    approved,
			DisplayName: displayName,
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	m.logger.Info("identity registered", "identity", identity, "approved", approved)
	return approved, nil
}

// Authenticate verifies identity and secret and, on success, makes the
// returned session current for the process.
//
// The administrator secret is compared in plaintext against
// configuration before the store is consulted. That bypass is observed
// behavior this app's users depend on; removing it would change admin
// login semantics.
func (m *Manager) Authenticate(identity, secret string) (models.Session, error) {
	if identity == m.adminIdentity && secret == m.adminSecret {
		s := models.Session{Identity: identity, IsAdmin: true}
		if err := m.sessions.Set(s); err != nil {
			return models.Session{}, err
		}
		m.logger.Info("administrator authenticated", "identity", identity)
		return s, nil
	}

	creds, err := m.creds.Load()
	if err != nil {
		return models.Session{}, err
	}

	cred, ok := creds[identity]
	if !ok {
		return models.Session{}, ErrUnknownIdentity
	}
	if !cred.Approved {
		return models.Session{}, ErrNotApproved
	}
	if !auth.CheckPassword(secret, cred.SecretHash) {
		return models.Session{}, ErrBadSecret
	}

	s := models.Session{Identity: identity, IsAdmin: identity == m.adminIdentity}
	if err := m.sessions.Set(s); err != nil {
		return models.Session{}, err
	}
	m.logger.Info("identity authenticated", "identity", identity)
	return s, nil
}

// Approve flips the approval flag for identity. Admin-only.
func (m *Manager) Approve(identity string) error {
	if err := m.requireAdmin(); err != nil {
		return err
	}
	err := m.creds.Update(func(creds map[string]models.Credential) error {
		cred, ok := creds[identity]
		if !ok {
			return ErrUnknownIdentity
		}
		if cred.Approved {
			return ErrAlreadyApproved
		}
		cred.Approved = true
		creds[identity] = cred
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("identity approved", "identity", identity)
	return nil
}

// DeleteIdentity removes the credential and cascades deletion of every
// expense record owned by identity. Admin-only.
//
// The two stores are persisted independently: when the cascade fails
// after the credential delete already persisted, the ledger keeps
// orphaned records under a deleted identity. They are inert (no session
// can authenticate as that identity again) and get reported, not hidden.
func (m *Manager) DeleteIdentity(identity string) error {
	if err := m.requireAdmin(); err != nil {
		return err
	}

	err := m.creds.Update(func(creds map[string]models.Credential) error {
		if _, ok := creds[identity]; !ok {
			return ErrUnknownIdentity
		}
		delete(creds, identity)
		return nil
	})
	if err != nil {
		return err
	}

	removed, err := m.ledger.CascadeDeleteOwner(identity)
	if err != nil {
		m.logger.Warn("cascade delete failed, orphaned records remain",
			"identity", identity, "error", err)
		return fmt.Errorf("credential deleted but expense cascade failed, orphaned records remain for %s: %w", identity, err)
	}

	m.logger.Info("identity deleted", "identity", identity, "records_removed", removed)
	return nil
}

// Accounts returns every registered credential except the administrator,
// sorted by identity, for the admin panel.
func (m *Manager) Accounts() ([]models.Credential, error) {
	if err := m.requireAdmin(); err != nil {
		return nil, err
	}
	creds, err := m.creds.Load()
	if err != nil {
		return nil, err
	}

	accounts := make([]models.Credential, 0, len(creds))
	for identity, cred := range creds {
		if identity == m.adminIdentity {
			continue
		}
		accounts = append(accounts, cred)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Identity < accounts[j].Identity
	})
	return accounts, nil
}

// Logout clears the current session.
func (m *Manager) Logout() error {
	return m.sessions.Clear()
}

func (m *Manager) requireAdmin() error {
	s, ok := m.sessions.Current()
	if !ok || !s.IsAdmin {
		return session.ErrNotAuthenticated
	}
	return nil
}
