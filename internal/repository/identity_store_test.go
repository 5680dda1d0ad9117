package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_AbsentFileMeansNoIdentifier(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	id, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, id)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("sess-42"))
	id, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "sess-42", id)
}

func TestSave_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save("sess-1"))
	id, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "sess-1", id)
}

func TestSave_EmptyIdentifierRejected(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.Error(t, s.Save(""))
	require.Error(t, s.Save("   "))
}

func TestSave_OverwriteReplacesIdentifier(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("first"))
	require.NoError(t, s.Save("second"))
	id, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "second", id)
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte("  sess-9\n"), 0o600))

	id, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "sess-9", id)
}

func TestNew_DefaultsToUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := New("")
	require.NoError(t, err)
	require.Contains(t, s.Path(), "pdfchat")
}
