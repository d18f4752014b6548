// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunker splits source text into bounded-size chunks by grouping
// whole paragraphs. Chunking is deterministic: identical input always
// produces an identical chunk sequence, which the reconciler relies on to
// detect changes by index.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

const defaultMaxChars = 1000

// FingerprintFunc computes a content digest of chunk text. It must be a
// pure function: identical text yields an identical digest.
type FingerprintFunc func(text string) string

// SHA256Hex is the default fingerprint: hex-encoded SHA-256 of the text.
func SHA256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Chunker groups paragraphs into chunks of roughly MaxChars characters.
type Chunker struct {
	cfg         types.ChunkerConfig
	fingerprint FingerprintFunc
}

// New returns a Chunker with the given configuration. Zero-value fields
// are replaced with defaults.
func New(cfg types.ChunkerConfig) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	return &Chunker{cfg: cfg, fingerprint: SHA256Hex}
}

// WithFingerprint replaces the digest function. Any collision-resistant
// digest works; changing it invalidates every existing cache entry, so it
// must stay fixed for the lifetime of a cache file.
func (c *Chunker) WithFingerprint(fn FingerprintFunc) *Chunker {
	c.fingerprint = fn
	return c
}

// Split chunks text into a deterministic sequence. Paragraphs (separated
// by blank lines) are accumulated greedily until adding the next one would
// push the chunk past MaxChars, then a new chunk starts. A single
// paragraph longer than MaxChars becomes its own oversized chunk; text is
// never split mid-paragraph. Empty input yields an empty slice.
func (c *Chunker) Split(text string) []types.Chunk {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []types.Chunk
	var current strings.Builder

	flush := func() {
		body := strings.TrimSpace(current.String())
		if body == "" {
			return
		}
		chunks = append(chunks, types.Chunk{
			Index:       len(chunks),
			Text:        body,
			Fingerprint: c.fingerprint(body),
		})
		current.Reset()
	}

	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p) > c.cfg.MaxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

// SplitFile reads path and chunks its contents. An unreadable source is a
// fatal error for the run; there is nothing to reconcile.
func (c *Chunker) SplitFile(path string) ([]types.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", path, err)
	}
	return c.Split(string(data)), nil
}
