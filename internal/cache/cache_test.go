// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

func TestLoadMissingFileIsFirstRun(t *testing.T) {
	c, err := Load(types.CacheConfig{Path: filepath.Join(t.TempDir(), "nope.cache.json")})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.cache.json")

	c, err := Load(types.CacheConfig{Path: path})
	require.NoError(t, err)

	entries := map[int]types.CacheEntry{
		0:  {Fingerprint: "aaa", IngestedID: "id-0"},
		1:  {Fingerprint: "bbb", IngestedID: "id-1"},
		17: {Fingerprint: "ccc", IngestedID: "id-17"},
	}
	for index, entry := range entries {
		c.Put(index, entry)
	}
	require.NoError(t, c.Save())

	reloaded, err := Load(types.CacheConfig{Path: path})
	require.NoError(t, err)
	require.Equal(t, len(entries), reloaded.Len())
	for index, want := range entries {
		got, ok := reloaded.Get(index)
		require.True(t, ok, "entry %d missing after reload", index)
		assert.Equal(t, want, got)
	}
}

func TestSaveReplacesPriorContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.cache.json")

	c, err := Load(types.CacheConfig{Path: path})
	require.NoError(t, err)
	c.Put(0, types.CacheEntry{Fingerprint: "old", IngestedID: "id-0"})
	c.Put(1, types.CacheEntry{Fingerprint: "gone", IngestedID: "id-1"})
	require.NoError(t, c.Save())

	c.Delete(1)
	c.Put(0, types.CacheEntry{Fingerprint: "new", IngestedID: "id-0"})
	require.NoError(t, c.Save())

	reloaded, err := Load(types.CacheConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
	entry, ok := reloaded.Get(0)
	require.True(t, ok)
	assert.Equal(t, "new", entry.Fingerprint)
}

func TestCorruptCacheIsFatalByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(types.CacheConfig{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt cache")
}

func TestCorruptCacheToleratedAsColdStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c, err := Load(types.CacheConfig{Path: path, TolerateCorrupt: true})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.cache.json")

	c, err := Load(types.CacheConfig{Path: path})
	require.NoError(t, err)
	c.Put(0, types.CacheEntry{Fingerprint: "aaa", IngestedID: "id-0"})
	require.NoError(t, c.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.cache.json", entries[0].Name())
}

func TestFailedSaveKeepsPriorStateAndCleansTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.cache.json")

	// Occupy the rename target with a non-empty directory so the final
	// rename in Save must fail.
	require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))
	marker := filepath.Join(path, "keep", "marker")
	require.NoError(t, os.WriteFile(marker, []byte("prior"), 0o644))

	c, err := Load(types.CacheConfig{Path: path, TolerateCorrupt: true})
	require.NoError(t, err)
	c.Put(0, types.CacheEntry{Fingerprint: "aaa", IngestedID: "id-0"})

	err = c.Save()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacing cache")

	// The target is untouched and no temp file is left behind.
	prior, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "prior", string(prior))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.cache.json", entries[0].Name())
}

func TestIndicesSorted(t *testing.T) {
	c, err := Load(types.CacheConfig{Path: filepath.Join(t.TempDir(), "doc.cache.json")})
	require.NoError(t, err)

	for _, index := range []int{5, 0, 3, 11, 1} {
		c.Put(index, types.CacheEntry{Fingerprint: "f"})
	}
	assert.Equal(t, []int{0, 1, 3, 5, 11}, c.Indices())
}

func TestDefaultPath(t *testing.T) {
	got := DefaultPath(filepath.Join("docs", "report.txt"))
	want := filepath.Join("docs", ".cache", "report.txt.cache.json")
	assert.Equal(t, want, got)
}
