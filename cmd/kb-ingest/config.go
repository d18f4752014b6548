// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kb-ingest/internal/cache"
	"github.com/pdiddy/kb-ingest/internal/secrets"
	"github.com/pdiddy/kb-ingest/pkg/types"
)

// addGraphFlags registers the sink flags shared by every command that
// opens the graph store.
func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "graph backend: sqlite or http (default: sqlite, or graph.backend from config)")
	cmd.Flags().String("graph-dir", "", "base directory for the sqlite backend (default: graph)")
	cmd.Flags().String("base-url", "", "endpoint for the http backend")
	cmd.Flags().Int("max-results", 0, "maximum number of query results (default 20)")
}

// graphConfig builds the sink configuration from flags, the config file,
// and loaded secrets, in that precedence order.
func graphConfig(cmd *cobra.Command) types.GraphConfig {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = viper.GetString("graph.backend")
	}
	if backend == "" {
		backend = string(types.BackendSQLite)
	}

	dir, _ := cmd.Flags().GetString("graph-dir")
	if dir == "" {
		dir = viper.GetString("graph.dir")
	}
	if dir == "" {
		dir = "graph"
	}

	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("graph.base_url")
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults == 0 {
		maxResults = viper.GetInt("graph.max_results")
	}

	return types.GraphConfig{
		Backend:    types.GraphBackend(backend),
		Dir:        dir,
		BaseURL:    baseURL,
		APIKey:     secretDefault(secrets.KeyGraphAPI, viper.GetString("graph.api_key")),
		Timeout:    viper.GetDuration("graph.timeout"),
		MaxResults: maxResults,
	}
}

// sourcePath resolves the document to ingest: the positional argument if
// given, otherwise the source key from the config file.
func sourcePath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p := viper.GetString("source"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no source file: pass a path or set source in the config file")
}

// chunkerConfig builds the chunker configuration from flags.
func chunkerConfig(cmd *cobra.Command) types.ChunkerConfig {
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	if maxChars == 0 {
		maxChars = viper.GetInt("chunker.max_chars")
	}
	return types.ChunkerConfig{MaxChars: maxChars}
}

// cacheConfig builds the fingerprint cache configuration. An empty --cache
// flag derives the default path from the source file.
func cacheConfig(cmd *cobra.Command, source string) types.CacheConfig {
	path, _ := cmd.Flags().GetString("cache")
	if path == "" {
		path = viper.GetString("cache.path")
	}
	if path == "" {
		path = cache.DefaultPath(source)
	}

	tolerate, _ := cmd.Flags().GetBool("tolerate-corrupt-cache")
	return types.CacheConfig{
		Path:            path,
		TolerateCorrupt: tolerate || viper.GetBool("cache.tolerate_corrupt"),
	}
}

// reconcileConfig builds the reconciliation settings from flags and the
// config file.
func reconcileConfig(cmd *cobra.Command) (types.ReconcileConfig, error) {
	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = viper.GetInt("reconcile.workers")
	}

	onRemoved, _ := cmd.Flags().GetString("on-removed")
	if onRemoved == "" {
		onRemoved = viper.GetString("reconcile.on_removed")
	}
	switch types.RemovedPolicy(onRemoved) {
	case types.RemovedKeep, types.RemovedDelete, "":
	default:
		return types.ReconcileConfig{}, fmt.Errorf("invalid --on-removed %q: use keep or delete", onRemoved)
	}

	perChunkSave, _ := cmd.Flags().GetBool("per-chunk-save")

	return types.ReconcileConfig{
		Workers:        workers,
		MaxRetries:     viper.GetInt("reconcile.max_retries"),
		RetryBaseDelay: viper.GetDuration("reconcile.retry_base_delay"),
		SinkTimeout:    viper.GetDuration("reconcile.sink_timeout"),
		OnRemoved:      types.RemovedPolicy(onRemoved),
		PerChunkSave:   perChunkSave || viper.GetBool("reconcile.per_chunk_save"),
	}, nil
}
