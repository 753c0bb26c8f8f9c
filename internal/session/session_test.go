package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"despesas/internal/models"
)

const adminEmail = "admin@example.com"

func TestInMemorySession(t *testing.T) {
	ctx, err := New("", adminEmail)
	require.NoError(t, err)

	_, ok := ctx.Current()
	assert.False(t, ok)

	require.NoError(t, ctx.Set(models.Session{Identity: "alice@example.com"}))
	s, ok := ctx.Current()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", s.Identity)

	require.NoError(t, ctx.Clear())
	_, ok = ctx.Current()
	assert.False(t, ok)
}

func TestPersistedSessionSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	ctx, err := New(path, adminEmail)
	require.NoError(t, err)
	require.NoError(t, ctx.Set(models.Session{Identity: "alice@example.com"}))

	// A new context on the same path plays the role of a restarted
	// process.
	restored, err := New(path, adminEmail)
	require.NoError(t, err)
	s, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", s.Identity)
	assert.False(t, s.IsAdmin)
}

func TestAdminFlagIsDerivedFromConfigNotDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	// A file claiming an admin flag would be ignored: only the identity
	// is read, and the flag comes from the configured admin identity.
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"is_logged_in":true,"identity":"admin@example.com","is_admin":false}`), 0o600))

	ctx, err := New(path, adminEmail)
	require.NoError(t, err)
	s, ok := ctx.Current()
	require.True(t, ok)
	assert.True(t, s.IsAdmin)
}

func TestClearRemovesPersistedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	ctx, err := New(path, adminEmail)
	require.NoError(t, err)
	require.NoError(t, ctx.Set(models.Session{Identity: "alice@example.com"}))
	require.NoError(t, ctx.Clear())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "sign-out must remove the session file")

	restored, err := New(path, adminEmail)
	require.NoError(t, err)
	_, ok := restored.Current()
	assert.False(t, ok)
}

func TestLoggedOutFileRestoresNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"is_logged_in":false,"identity":""}`), 0o600))

	ctx, err := New(path, adminEmail)
	require.NoError(t, err)
	_, ok := ctx.Current()
	assert.False(t, ok)
}
