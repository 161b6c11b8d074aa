package storage

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save(filepath.Join("exports", "report.csv"), []byte("id,total\n"))
	require.NoError(t, err)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "id,total\n", string(data))
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	// Absolute names must never be served verbatim, and relative names must
	// stay confined to the base directory.
	for _, name := range []string{
		filepath.Join(base, "..", "outside.txt"),
		string(filepath.Separator) + "etc" + string(filepath.Separator) + "passwd",
		"..",
		filepath.Join("..", "escape.csv"),
		filepath.Join("exports", "..", "..", "escape.csv"),
	} {
		_, err := store.Save(name, []byte("x"))
		assert.Error(t, err, "save %q", name)

		_, err = store.Open(name)
		assert.Error(t, err, "open %q", name)

		assert.Error(t, store.Delete(name), "delete %q", name)
	}
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete("never-written.csv"))
}
