// Package session tracks who is currently authenticated for this
// process run.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"despesas/internal/models"
)

// ErrNotAuthenticated is returned by operations that require a current
// session (or an admin session) when none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// persisted is the optional on-disk form of the session. IsAdmin is
// deliberately absent: admin status is re-derived from configuration on
// restore, never trusted from disk.
type persisted struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Identity   string `json:"identity"`
}

// Context holds the current session. With a non-empty path it survives
// process restarts; sign-out removes the file.
type Context struct {
	path          string
	adminIdentity string

	mu      sync.Mutex
	current *models.Session
}

// New creates a session context. If path is non-empty and holds a
// persisted session from a previous run, that session is restored.
func New(path, adminIdentity string) (*Context, error) {
	c := &Context{path: path, adminIdentity: adminIdentity}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if p.IsLoggedIn && p.Identity != "" {
		c.current = &models.Session{
			Identity: p.Identity,
			IsAdmin:  p.Identity == adminIdentity,
		}
	}
	return c, nil
}

// Current returns the current session and whether one is set.
func (c *Context) Current() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return models.Session{}, false
	}
	return *c.current, true
}

// Set makes s the current session and, when persistence is enabled,
// writes it to disk atomically.
func (c *Context) Set(s models.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &s
	if c.path == "" {
		return nil
	}
	return c.persist(persisted{IsLoggedIn: true, Identity: s.Identity})
}

// Clear ends the current session and removes any persisted copy.
func (c *Context) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (c *Context) persist(p persisted) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
