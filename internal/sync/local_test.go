package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, mtime time.Time) {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestLocalStore_List(t *testing.T) {
	dir := t.TempDir()
	base := time.Unix(1700000000, 0)

	writeFile(t, dir, "a.txt", base)
	writeFile(t, dir, "b.txt", base.Add(time.Minute))
	writeFile(t, dir, "~tmp.txt", base) // reserved prefix, excluded
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	store, err := NewLocalStore(dir, "", 0)
	require.NoError(t, err)

	snap, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		"a.txt": 1700000000,
		"b.txt": 1700000060,
	}, snap)
}

func TestLocalStore_List_AppliesClockOffset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", time.Unix(100, 0))

	store, err := NewLocalStore(dir, "", 7)
	require.NoError(t, err)

	snap, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, int64(107), snap["a.txt"])
}

func TestLocalStore_List_RoundsSubsecondUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", time.Unix(100, 500_000_000))

	store, err := NewLocalStore(dir, "", 0)
	require.NoError(t, err)

	snap, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, int64(101), snap["a.txt"])
}

func TestLocalStore_MissingDirFallsBackToDefault(t *testing.T) {
	tmp := t.TempDir()
	fallback := filepath.Join(tmp, "default_sync")

	store, err := NewLocalStore("", fallback, 0)
	require.NoError(t, err)
	assert.Equal(t, fallback, store.Dir())
	assert.DirExists(t, fallback)
}

func TestLocalStore_CreatesConfiguredDir(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "sync_me")

	store, err := NewLocalStore(dir, filepath.Join(tmp, "unused"), 0)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	assert.DirExists(t, dir)
}

func TestLocalStore_Delete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", time.Unix(100, 0))

	store, err := NewLocalStore(dir, "", 0)
	require.NoError(t, err)

	require.NoError(t, store.Delete("a.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))

	err = store.Delete("a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_List_DirRemovedMidway(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "vanishing")
	store, err := NewLocalStore(dir, "", 0)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	_, err = store.List()
	var accessErr *AccessError
	assert.ErrorAs(t, err, &accessErr)

	// the failed listing attempts directory repair
	assert.DirExists(t, dir)
}
