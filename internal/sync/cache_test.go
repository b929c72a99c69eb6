package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "cache.json")
}

func readCacheFile(t *testing.T, path string) map[string]int64 {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := make(map[string]int64)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCache_StartsEmptyWhenFileMissing(t *testing.T) {
	c := NewCache(cachePath(t), "")
	assert.Zero(t, c.Len())
}

func TestCache_CorruptFileDegradesToEmpty(t *testing.T) {
	path := cachePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := NewCache(path, "")
	assert.Zero(t, c.Len())
}

func TestCache_InvalidPathFallsBack(t *testing.T) {
	fallback := cachePath(t)
	c := NewCache("", fallback)
	assert.Equal(t, fallback, c.Path())
}

func TestCache_PutPersistsImmediately(t *testing.T) {
	path := cachePath(t)
	c := NewCache(path, "")

	c.Put("a.txt", 100)

	// a fresh load must see the mutation
	assert.Equal(t, map[string]int64{"a.txt": 100}, readCacheFile(t, path))

	got, ok := c.Get("a.txt")
	assert.True(t, ok)
	assert.Equal(t, int64(100), got)
}

func TestCache_RemovePersistsWhenPresent(t *testing.T) {
	path := cachePath(t)
	c := NewCache(path, "")
	c.Put("a.txt", 100)
	c.Put("b.txt", 200)

	c.Remove("a.txt")
	assert.Equal(t, map[string]int64{"b.txt": 200}, readCacheFile(t, path))

	// removing an absent name is a no-op
	c.Remove("a.txt")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ClearPersists(t *testing.T) {
	path := cachePath(t)
	c := NewCache(path, "")
	c.Put("a.txt", 100)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, readCacheFile(t, path))
}

func TestCache_ReplaceAllSeedsVerbatim(t *testing.T) {
	path := cachePath(t)
	c := NewCache(path, "")
	c.Put("old.txt", 1)

	c.ReplaceAll(Snapshot{"a.txt": 100, "b.txt": 200})
	assert.Equal(t, map[string]int64{"a.txt": 100, "b.txt": 200}, readCacheFile(t, path))
}

func TestCache_ReloadsAcrossInstances(t *testing.T) {
	path := cachePath(t)
	c := NewCache(path, "")
	c.Put("a.txt", 123)

	reloaded := NewCache(path, "")
	got, ok := reloaded.Get("a.txt")
	assert.True(t, ok)
	assert.Equal(t, int64(123), got)
}

func TestCache_AllReturnsCopy(t *testing.T) {
	c := NewCache(cachePath(t), "")
	c.Put("a.txt", 100)

	all := c.All()
	all["a.txt"] = 999

	got, _ := c.Get("a.txt")
	assert.Equal(t, int64(100), got)
}
