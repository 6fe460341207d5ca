package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nope.yaml"), logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, domain.ViewPreferences{}, s.Get("a/b/c"))
}

func TestSetPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s, err := Open(path, logr.Discard())
	require.NoError(t, err)

	key := Key("guestbook", "default", "guestbook-ui-1")
	s.Set(key, domain.ViewPreferences{DarkMode: true})
	s.Set(key, domain.ViewPreferences{DarkMode: true, WrapLines: true})
	assert.Equal(t, domain.ViewPreferences{DarkMode: true, WrapLines: true}, s.Get(key))
	s.Flush()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "darkMode: true")

	again, err := Open(path, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, domain.ViewPreferences{DarkMode: true, WrapLines: true}, again.Get(key))
	assert.Equal(t, domain.ViewPreferences{}, again.Get("other"))
}

func TestOpenRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewers: [\n"), 0o644))
	_, err := Open(path, logr.Discard())
	assert.Error(t, err)
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open("", logr.Discard())
	require.NoError(t, err)
	s.Set("k", domain.ViewPreferences{WrapLines: true})
	s.Flush()
	assert.True(t, s.Get("k").WrapLines)
}
