// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kb-ingest/internal/cache"
	"github.com/pdiddy/kb-ingest/internal/chunker"
	"github.com/pdiddy/kb-ingest/internal/graph"
	"github.com/pdiddy/kb-ingest/internal/reconcile"
	"github.com/pdiddy/kb-ingest/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the knowledge graph from scratch",
	Long: `Ingest chunks the document into paragraph groups and sends every chunk
to the graph, ignoring any state from previous runs. The fingerprint
cache is rebuilt, so a later reingest starts from this run's state.

Pass --clear to wipe existing episodes from the store first (sqlite
backend only).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	source, err := sourcePath(args)
	if err != nil {
		return err
	}

	chunks, err := chunker.New(chunkerConfig(cmd)).SplitFile(source)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "parsed %d chunks from %s\n", len(chunks), source)

	gcfg := graphConfig(cmd)
	sink, closeSink, err := graph.Open(gcfg)
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	clearExisting, _ := cmd.Flags().GetBool("clear")
	if clearExisting {
		store, ok := sink.(*graph.Store)
		if !ok {
			return fmt.Errorf("--clear is only supported with the sqlite backend")
		}
		fmt.Fprintln(os.Stdout, "clearing existing episodes")
		if err := store.Clear(ctx); err != nil {
			return err
		}
	}

	// Start from an empty cache so every chunk is ingested fresh.
	ccfg := cacheConfig(cmd, source)
	if err := os.Remove(ccfg.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("resetting cache %s: %w", ccfg.Path, err)
	}
	c, err := cache.Load(ccfg)
	if err != nil {
		return err
	}

	rcfg, err := reconcileConfig(cmd)
	if err != nil {
		return err
	}
	rcfg.OnRemoved = types.RemovedKeep

	r := reconcile.New(sink, c, rcfg, filepath.Base(source))
	summary, err := r.Run(ctx, chunks, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d chunk(s) failed ingestion", summary.Failed)
	}
	return nil
}

func init() {
	ingestCmd.Flags().Bool("clear", false, "clear existing episodes before ingesting (sqlite backend only)")
	ingestCmd.Flags().String("cache", "", "fingerprint cache file (default: .cache/<name>.cache.json next to the source)")
	ingestCmd.Flags().Int("max-chars", 0, "target chunk size in characters (default 1000)")
	ingestCmd.Flags().Int("workers", 0, "concurrent sink calls (default 1)")
	ingestCmd.Flags().Bool("per-chunk-save", false, "persist the cache after every successful chunk instead of once at the end")
	ingestCmd.Flags().Bool("tolerate-corrupt-cache", false, "treat an unreadable cache as a cold start instead of failing")
	addGraphFlags(ingestCmd)

	rootCmd.AddCommand(ingestCmd)
}
