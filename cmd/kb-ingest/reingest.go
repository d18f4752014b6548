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
)

var reingestCmd = &cobra.Command{
	Use:   "reingest [file]",
	Short: "Reingest a document, sending only changed chunks to the graph",
	Long: `Reingest chunks the document, compares each chunk's fingerprint against
the cache from previous runs, and ingests only chunks that are new or
modified. Unchanged chunks are skipped entirely; a document with no edits
results in zero sink calls.

Chunks removed from the document are kept in the graph by default; pass
--on-removed delete to remove them and drop their cache entries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReingest,
}

func runReingest(cmd *cobra.Command, args []string) error {
	source, err := sourcePath(args)
	if err != nil {
		return err
	}

	chunks, err := chunker.New(chunkerConfig(cmd)).SplitFile(source)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "parsed %d chunks from %s\n", len(chunks), source)

	c, err := cache.Load(cacheConfig(cmd, source))
	if err != nil {
		return err
	}

	rcfg, err := reconcileConfig(cmd)
	if err != nil {
		return err
	}

	sink, closeSink, err := graph.Open(graphConfig(cmd))
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

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
	reingestCmd.Flags().String("cache", "", "fingerprint cache file (default: .cache/<name>.cache.json next to the source)")
	reingestCmd.Flags().Int("max-chars", 0, "target chunk size in characters (default 1000)")
	reingestCmd.Flags().Int("workers", 0, "concurrent sink calls (default 1)")
	reingestCmd.Flags().String("on-removed", "", "policy for chunks deleted from the source: keep or delete (default keep)")
	reingestCmd.Flags().Bool("per-chunk-save", false, "persist the cache after every successful chunk instead of once at the end")
	reingestCmd.Flags().Bool("tolerate-corrupt-cache", false, "treat an unreadable cache as a cold start instead of failing")
	addGraphFlags(reingestCmd)

	rootCmd.AddCommand(reingestCmd)
}
