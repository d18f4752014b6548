// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists the mapping from chunk index to the fingerprint
// and sink handle of its last successful ingestion. The cache is what
// makes reingestion incremental: a chunk whose fingerprint matches its
// entry is skipped entirely.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

// Cache is an in-memory fingerprint cache backed by a JSON file. A single
// reconciler run owns the Cache exclusively; Put is not safe for
// concurrent use and callers with multiple workers must serialize it.
type Cache struct {
	path    string
	entries map[int]types.CacheEntry
}

// DefaultPath derives the cache file location for a source file:
// .cache/<name>.cache.json in the source file's directory.
func DefaultPath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	name := filepath.Base(sourcePath)
	return filepath.Join(dir, ".cache", name+".cache.json")
}

// Load reads the cache file at path. A missing file is a first run and
// yields an empty cache. A corrupt or unreadable file is an error unless
// tolerateCorrupt is set, in which case it is treated as a cold start;
// the default is to fail, since silently classifying everything as new
// risks duplicate ingestion.
func Load(cfg types.CacheConfig) (*Cache, error) {
	c := &Cache{
		path:    cfg.Path,
		entries: make(map[int]types.CacheEntry),
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		if cfg.TolerateCorrupt {
			fmt.Fprintf(os.Stderr, "warning: unreadable cache %s, starting cold: %v\n", cfg.Path, err)
			return c, nil
		}
		return nil, fmt.Errorf("reading cache %s: %w", cfg.Path, err)
	}

	var persisted map[string]types.CacheEntry
	if err := json.Unmarshal(data, &persisted); err != nil {
		if cfg.TolerateCorrupt {
			fmt.Fprintf(os.Stderr, "warning: corrupt cache %s, starting cold: %v\n", cfg.Path, err)
			return c, nil
		}
		return nil, fmt.Errorf("corrupt cache %s (use tolerate_corrupt to start cold): %w", cfg.Path, err)
	}

	for key, entry := range persisted {
		index, err := strconv.Atoi(key)
		if err != nil {
			if cfg.TolerateCorrupt {
				continue
			}
			return nil, fmt.Errorf("corrupt cache %s: bad index %q", cfg.Path, key)
		}
		c.entries[index] = entry
	}

	return c, nil
}

// Get returns the entry for index, or ok=false if the index has never
// been successfully ingested.
func (c *Cache) Get(index int) (types.CacheEntry, bool) {
	entry, ok := c.entries[index]
	return entry, ok
}

// Put upserts the entry for index.
func (c *Cache) Put(index int, entry types.CacheEntry) {
	c.entries[index] = entry
}

// Delete removes the entry for index, if present.
func (c *Cache) Delete(index int) {
	delete(c.entries, index)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Indices returns all cached chunk indices in ascending order.
func (c *Cache) Indices() []int {
	indices := make([]int, 0, len(c.entries))
	for i := range c.entries {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Save durably persists the full mapping, replacing prior contents. The
// write goes to a temp file in the same directory which is fsynced and
// renamed over the target, so a crash mid-write never leaves a corrupt
// or partially-written cache behind.
func (c *Cache) Save() error {
	persisted := make(map[string]types.CacheEntry, len(c.entries))
	for index, entry := range c.entries {
		persisted[strconv.Itoa(index)] = entry
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache %s: %w", c.path, err)
	}
	return nil
}
