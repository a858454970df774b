package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrCacheLocked is returned by Lock when another run holds the cache.
var ErrCacheLocked = errors.New("lookup cache is locked by another run")

// Cache persists lookup results as a JSON object mapping lookup key to
// identifiers. An empty identifier list records a lookup that found nothing.
// It is safe for concurrent use.
type Cache struct {
	path    string
	logger  *slog.Logger
	lock    *flock.Flock
	mu      sync.RWMutex
	entries map[string][]string
	dirty   bool
}

// OpenCache loads the cache at path. A missing file is an empty cache. An
// empty path gives an in-memory cache that is never written.
func OpenCache(path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		path:    path,
		logger:  logger.With("component", "lookup_cache"),
		entries: make(map[string][]string),
	}
	if path == "" {
		return c, nil
	}
	c.lock = flock.New(path + ".lock")

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Lock takes an exclusive advisory lock on the cache file so two runs
// cannot overwrite each other's results. Once locked the file is read again,
// so entries saved by the previous holder are kept; changes made before Lock
// are discarded.
func (c *Cache) Lock() error {
	if c.lock == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock cache: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCacheLocked, c.lock.Path())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string)
	c.dirty = false
	if err := c.load(); err != nil {
		_ = c.lock.Unlock()
		return err
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (c *Cache) Unlock() error {
	if c.lock == nil {
		return nil
	}
	return c.lock.Unlock()
}

// Get returns the cached identifiers for key.
func (c *Cache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.entries[strings.TrimSpace(key)]
	return ids, ok
}

// Put stores identifiers for key, replacing any earlier entry.
func (c *Cache) Put(key string, ids []string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	stored := slices.Clone(ids)
	if stored == nil {
		stored = []string{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stored
	c.dirty = true
}

// Remove deletes the entry for key.
func (c *Cache) Remove(key string) error {
	key = strings.TrimSpace(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return fmt.Errorf("key %q not found in cache", key)
	}
	delete(c.entries, key)
	c.dirty = true
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string)
	c.dirty = true
}

// Keys returns the cached keys sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the cache atomically if it changed since it was loaded.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	// encoding/json sorts map keys, so the file is deterministic
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	c.dirty = false
	c.logger.Debug("Saved lookup cache", "path", c.path, "entries", len(c.entries))
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var entries map[string][]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse cache file %s: %w", c.path, err)
	}
	for k, v := range entries {
		if k = strings.TrimSpace(k); k != "" {
			if v == nil {
				v = []string{}
			}
			c.entries[k] = v
		}
	}

	c.logger.Debug("Loaded lookup cache", "path", c.path, "entries", len(c.entries))
	return nil
}
