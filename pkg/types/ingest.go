// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across kb-ingest stages.
package types

import "time"

// Chunk is an ordered unit of source text produced by the chunker.
type Chunk struct {
	// Index is the 0-based position of the chunk in the source sequence.
	// Stable across runs as long as the source text is unchanged.
	Index int `json:"index" yaml:"index"`

	// Text is the exact chunk content, whitespace included.
	Text string `json:"text" yaml:"text"`

	// Fingerprint is a content digest of Text. Identical text always
	// yields an identical fingerprint.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// CacheEntry records the last successful ingestion of a chunk index.
// An entry exists if and only if that index has been ingested at least once.
type CacheEntry struct {
	// Fingerprint is the digest of the chunk text as last ingested.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// IngestedID is the opaque handle returned by the sink, used for
	// update-in-place or deletion on later runs.
	IngestedID string `json:"ingested_id" yaml:"ingested_id"`
}

// Classification is the reconciler's verdict for a single chunk.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassModified  Classification = "modified"
	ClassUnchanged Classification = "unchanged"
	ClassRemoved   Classification = "removed"
)

// RemovedPolicy controls what happens to cache entries whose chunk index
// no longer exists in the source text.
type RemovedPolicy string

const (
	// RemovedKeep leaves the stale record in the sink and the cache entry
	// in place; the run only reports the count.
	RemovedKeep RemovedPolicy = "keep"

	// RemovedDelete asks the sink to delete the stale record and drops
	// the cache entry.
	RemovedDelete RemovedPolicy = "delete"
)

// Episode is the unit of content handed to the ingestion sink. The sink
// (a knowledge-graph service) performs its own entity extraction; kb-ingest
// only supplies the raw text and provenance.
type Episode struct {
	// Name labels the episode (e.g. "Chunk 3 of report.txt").
	Name string `json:"name" yaml:"name"`

	// Body is the episode text.
	Body string `json:"body" yaml:"body"`

	// SourceDescription records where the text came from.
	SourceDescription string `json:"source_description" yaml:"source_description"`

	// ReferenceTime orders episodes on the sink's timeline.
	ReferenceTime time.Time `json:"reference_time" yaml:"reference_time"`
}
