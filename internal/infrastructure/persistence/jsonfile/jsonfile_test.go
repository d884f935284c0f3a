package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "users.json")
	require.NoError(t, Write(path, map[string]string{"name": "Анна <a&b>"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"Анна <a&b>\"\n}", string(raw))

	var got map[string]string
	ok, err := Read(path, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Анна <a&b>", got["name"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestReadMissingAndCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var v map[string]any

	ok, err := Read(filepath.Join(dir, "missing.json"), &v)
	require.NoError(t, err)
	assert.False(t, ok)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o644))
	ok, err = Read(bad, &v)
	assert.Error(t, err)
	assert.False(t, ok)
}
