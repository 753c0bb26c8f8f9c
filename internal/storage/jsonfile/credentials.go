package jsonfile

import (
	"despesas/internal/models"
)

// CredentialStore is the JSON-file credential backend. The on-disk form
// is a single object keyed by identity.
type CredentialStore struct {
	file *file
}

// NewCredentialStore creates a credential store backed by the JSON file
// at path. The file is created on first Update.
func NewCredentialStore(path string) (*CredentialStore, error) {
	f, err := newFile(path)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{file: f}, nil
}

// Load returns the full credential mapping. A missing file yields an
// empty mapping.
func (s *CredentialStore) Load() (map[string]models.Credential, error) {
	creds := make(map[string]models.Credential)
	err := s.file.withLock(false, func() error {
		return s.file.read(&creds)
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Update applies fn under the store lock and persists the result.
func (s *CredentialStore) Update(fn func(map[string]models.Credential) error) error {
	return s.file.withLock(true, func() error {
		creds := make(map[string]models.Credential)
		if err := s.file.read(&creds); err != nil {
			return err
		}
		if err := fn(creds); err != nil {
			return err
		}
		return s.file.write(creds)
	})
}
