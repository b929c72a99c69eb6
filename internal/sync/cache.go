package sync

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/disklab/disksync/internal/utils"
)

// Cache is the persisted mapping from file name to the last-synchronized
// modification time: the single source of truth for what both sides last
// agreed on. Every mutating call rewrites the backing JSON file in full
// before returning, bounding crash loss to the in-flight operation.
type Cache struct {
	mu       sync.Mutex
	path     string
	metadata map[string]int64
}

// NewCache loads the cache from path. A missing or corrupt backing file
// degrades to an empty cache ("nothing known yet"), never a startup failure.
// A path that is not a .json file is replaced by fallbackPath, logged.
func NewCache(path, fallbackPath string) *Cache {
	if !strings.HasSuffix(path, ".json") {
		slog.Error("cache file path missing or invalid, using default", "path", path, "default", fallbackPath)
		path = fallbackPath
	}

	c := &Cache{
		path:     path,
		metadata: make(map[string]int64),
	}
	c.load()
	return c
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("cache read failed, starting with empty cache", "path", c.path, "error", err)
		}
		return
	}

	if err := json.Unmarshal(data, &c.metadata); err != nil {
		slog.Error("cache corrupt, starting with empty cache", "path", c.path, "error", err)
		c.metadata = make(map[string]int64)
	}
}

// persist rewrites the whole backing file. Callers hold c.mu.
func (c *Cache) persist() {
	if err := utils.EnsureParent(c.path); err != nil {
		slog.Error("cache directory create failed", "path", c.path, "error", err)
		return
	}

	data, err := json.MarshalIndent(c.metadata, "", "    ")
	if err != nil {
		slog.Error("cache encode failed", "path", c.path, "error", err)
		return
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		slog.Error("cache write failed", "path", c.path, "error", err)
	}
}

// Get returns the cached modification time for name.
func (c *Cache) Get(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.metadata[name]
	return t, ok
}

// Put records the modification time for name and persists.
func (c *Cache) Put(name string, mtime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[name] = mtime
	c.persist()
}

// Remove drops name from the cache, persisting when an entry was present.
// Removing an absent name is a logged no-op.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.metadata[name]; !ok {
		slog.Debug("cache entry absent, nothing to remove", "name", name)
		return
	}
	delete(c.metadata, name)
	c.persist()
}

// Clear empties the cache and persists.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata = make(map[string]int64)
	c.persist()
}

// ReplaceAll seeds the cache verbatim from a snapshot and persists.
func (c *Cache) ReplaceAll(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata = make(map[string]int64, len(snap))
	for name, mtime := range snap {
		c.metadata[name] = mtime
	}
	c.persist()
}

// All returns a copy of the cached mapping.
func (c *Cache) All() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Snapshot, len(c.metadata))
	for name, mtime := range c.metadata {
		out[name] = mtime
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.metadata)
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}
