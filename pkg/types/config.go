// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ChunkerConfig holds settings for splitting source text into chunks.
type ChunkerConfig struct {
	// MaxChars is the target chunk size in characters (default 1000).
	// A single paragraph longer than this is emitted as its own
	// oversized chunk rather than split mid-paragraph.
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// CacheConfig holds settings for the fingerprint cache.
type CacheConfig struct {
	// Path is the cache file location. Empty derives a default next to
	// the source file (.cache/<name>.cache.json).
	Path string `json:"path" yaml:"path"`

	// TolerateCorrupt treats an unreadable or corrupt cache file as a
	// cold start instead of failing the run. Off by default: a silent
	// cold start re-ingests everything and risks duplicate records.
	TolerateCorrupt bool `json:"tolerate_corrupt" yaml:"tolerate_corrupt"`
}

// ReconcileConfig holds settings for a reconciliation run.
type ReconcileConfig struct {
	// Workers bounds concurrent sink calls (default 1, i.e. sequential).
	Workers int `json:"workers" yaml:"workers"`

	// MaxRetries is the number of retry attempts per failed sink call
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the initial backoff delay, doubled per attempt
	// (default 1s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// SinkTimeout bounds each individual sink call (default 60s).
	// An expired call counts as a failure for that chunk, not a crash
	// of the whole run.
	SinkTimeout time.Duration `json:"sink_timeout" yaml:"sink_timeout"`

	// OnRemoved selects the policy for chunks deleted from the source:
	// keep or delete (default keep).
	OnRemoved RemovedPolicy `json:"on_removed" yaml:"on_removed"`

	// PerChunkSave persists the cache after every successful sink call
	// instead of once at the end of the run. Finer crash recovery at
	// the cost of extra writes.
	PerChunkSave bool `json:"per_chunk_save" yaml:"per_chunk_save"`
}

// GraphBackend identifies the ingestion sink implementation.
type GraphBackend string

const (
	// BackendSQLite stores episodes in a local SQLite database.
	BackendSQLite GraphBackend = "sqlite"

	// BackendHTTP sends episodes to a hosted knowledge-graph service.
	BackendHTTP GraphBackend = "http"
)

// GraphConfig holds settings for the knowledge-graph sink.
type GraphConfig struct {
	// Backend selects the sink: sqlite or http.
	Backend GraphBackend `json:"backend" yaml:"backend"`

	// Dir is the base directory for the sqlite backend (contains
	// index/kb.db and export files).
	Dir string `json:"dir" yaml:"dir"`

	// BaseURL is the endpoint for the http backend.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests to the http backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout is the HTTP request timeout for the http backend.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxResults is the maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
