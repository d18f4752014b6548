// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile computes the minimal set of ingestion actions needed
// to bring the sink in sync with the current chunk sequence, and applies
// them. Each chunk is classified against the fingerprint cache as new,
// modified, unchanged, or removed; only new and modified chunks reach the
// sink. Running twice with unchanged source text performs zero sink calls
// on the second run.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kb-ingest/internal/cache"
	"github.com/pdiddy/kb-ingest/internal/graph"
	"github.com/pdiddy/kb-ingest/pkg/types"
)

// Summary holds counts from a reconciliation run.
type Summary struct {
	New       int
	Modified  int
	Unchanged int
	Removed   int
	Failed    int
}

// Total returns the number of current chunks processed.
func (s Summary) Total() int {
	return s.New + s.Modified + s.Unchanged + s.Failed
}

// Reconciler diffs chunks against the cache and drives the sink. It owns
// the cache exclusively for the duration of a run.
type Reconciler struct {
	sink   graph.Sink
	cache  *cache.Cache
	cfg    types.ReconcileConfig
	source string

	mu sync.Mutex // serializes cache mutation and progress output
}

// New returns a Reconciler. source labels episodes with their origin
// (typically the source file name). Zero-value config fields are replaced
// with defaults.
func New(sink graph.Sink, c *cache.Cache, cfg types.ReconcileConfig, source string) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 60 * time.Second
	}
	if cfg.OnRemoved == "" {
		cfg.OnRemoved = types.RemovedKeep
	}
	return &Reconciler{sink: sink, cache: c, cfg: cfg, source: source}
}

// action is one chunk's pending sink work.
type action struct {
	chunk   types.Chunk
	class   types.Classification
	priorID string // sink handle from the cache, set for modified chunks
}

// Run reconciles chunks against the cache, invoking the sink for every
// new or modified chunk and writing progress lines to w. On sink success
// the cache entry is updated; on failure the prior entry is left
// untouched so the chunk is retried on the next run. The cache is saved
// once after all sink calls have resolved (or after each success when
// PerChunkSave is set).
//
// A non-nil error means the run itself could not complete (cancellation,
// cache persistence). Per-chunk sink failures are reported in the
// Summary, not as an error. An interrupted run still persists the
// entries of chunks the sink had already confirmed.
func (r *Reconciler) Run(ctx context.Context, chunks []types.Chunk, w io.Writer) (Summary, error) {
	var summary Summary

	// Classification pass: pure, no sink calls yet.
	var pending []action
	for _, chunk := range chunks {
		entry, ok := r.cache.Get(chunk.Index)
		switch {
		case !ok:
			pending = append(pending, action{chunk: chunk, class: types.ClassNew})
		case entry.Fingerprint != chunk.Fingerprint:
			pending = append(pending, action{chunk: chunk, class: types.ClassModified, priorID: entry.IngestedID})
		default:
			summary.Unchanged++
		}
	}

	// Cached indices beyond the current sequence are removed chunks.
	removed := r.removedIndices(len(chunks))
	summary.Removed = len(removed)
	if err := r.handleRemoved(ctx, removed, w); err != nil {
		return summary, err
	}

	if len(pending) == 0 && len(removed) == 0 {
		fmt.Fprintf(w, "no changes detected, nothing to ingest\n")
		r.writeTotals(w, summary)
		return summary, nil
	}

	baseTime := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	results := make([]error, len(pending))
	for i, act := range pending {
		i, act := i, act
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = err
				return err
			}
			results[i] = r.apply(gctx, act, baseTime, w)
			return nil
		})
	}

	// Join point: the final save must not race outstanding sink calls.
	if err := g.Wait(); err != nil {
		// Chunks confirmed before the interruption are persisted so the
		// next run does not re-ingest them.
		if !r.cfg.PerChunkSave {
			if saveErr := r.cache.Save(); saveErr != nil {
				fmt.Fprintf(w, "warning: cache save after interrupted run failed: %v\n", saveErr)
			}
		}
		return summary, err
	}

	for i, act := range pending {
		switch {
		case results[i] != nil:
			summary.Failed++
		case act.class == types.ClassNew:
			summary.New++
		default:
			summary.Modified++
		}
	}

	if !r.cfg.PerChunkSave {
		if err := r.cache.Save(); err != nil {
			return summary, fmt.Errorf("persisting cache: %w", err)
		}
	}

	r.writeTotals(w, summary)
	return summary, nil
}

// apply pushes one chunk to the sink with timeout and retry, and updates
// the cache entry on success.
func (r *Reconciler) apply(ctx context.Context, act action, baseTime time.Time, w io.Writer) error {
	ep := r.episode(act, baseTime)

	id, err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBaseDelay, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.SinkTimeout)
		defer cancel()

		if act.class == types.ClassModified && act.priorID != "" {
			return r.sink.Update(callCtx, act.priorID, ep)
		}
		return r.sink.Ingest(callCtx, ep)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		// Prior entry stays untouched: the chunk remains new/modified
		// on the next run.
		fmt.Fprintf(w, "failed  chunk %d: %v\n", act.chunk.Index, err)
		return err
	}

	r.cache.Put(act.chunk.Index, types.CacheEntry{
		Fingerprint: act.chunk.Fingerprint,
		IngestedID:  id,
	})
	if r.cfg.PerChunkSave {
		if err := r.cache.Save(); err != nil {
			fmt.Fprintf(w, "warning: cache save after chunk %d failed: %v\n", act.chunk.Index, err)
		}
	}

	fmt.Fprintf(w, "%-8s chunk %d\n", string(act.class), act.chunk.Index)
	return nil
}

// episode builds the sink payload for a chunk. Reference times are spread
// ten seconds apart by index so episodes keep source order on the sink's
// timeline.
func (r *Reconciler) episode(act action, baseTime time.Time) types.Episode {
	name := fmt.Sprintf("Chunk %d", act.chunk.Index+1)
	desc := fmt.Sprintf("Ingested from %s", r.source)
	if act.class == types.ClassModified {
		name += " (Updated)"
		desc = fmt.Sprintf("Reingested from %s", r.source)
	}
	return types.Episode{
		Name:              name,
		Body:              act.chunk.Text,
		SourceDescription: desc,
		ReferenceTime:     baseTime.Add(time.Duration(act.chunk.Index) * 10 * time.Second),
	}
}

// removedIndices returns cached indices with no counterpart in the
// current chunk sequence, in ascending order.
func (r *Reconciler) removedIndices(chunkCount int) []int {
	var removed []int
	for _, index := range r.cache.Indices() {
		if index >= chunkCount {
			removed = append(removed, index)
		}
	}
	return removed
}

// handleRemoved applies the configured removed-chunk policy. With keep,
// stale sink records and cache entries are left in place and only
// counted. With delete, the sink record is removed and the cache entry
// dropped; a failed delete is fatal for the run since retrying it later
// requires the entry to still exist.
func (r *Reconciler) handleRemoved(ctx context.Context, removed []int, w io.Writer) error {
	for _, index := range removed {
		if r.cfg.OnRemoved == types.RemovedKeep {
			fmt.Fprintf(w, "removed chunk %d (kept in sink)\n", index)
			continue
		}

		entry, _ := r.cache.Get(index)
		if entry.IngestedID != "" {
			_, err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBaseDelay, func() (struct{}, error) {
				callCtx, cancel := context.WithTimeout(ctx, r.cfg.SinkTimeout)
				defer cancel()
				return struct{}{}, r.sink.Delete(callCtx, entry.IngestedID)
			})
			if err != nil {
				return fmt.Errorf("deleting removed chunk %d: %w", index, err)
			}
		}
		r.cache.Delete(index)
		fmt.Fprintf(w, "removed chunk %d (deleted from sink)\n", index)
	}

	// Dropped entries must not reappear if the run stops here.
	if r.cfg.OnRemoved == types.RemovedDelete && len(removed) > 0 {
		if err := r.cache.Save(); err != nil {
			return fmt.Errorf("persisting cache after removals: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) writeTotals(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nnew: %d, modified: %d, unchanged: %d, removed: %d, failed: %d\n",
		s.New, s.Modified, s.Unchanged, s.Removed, s.Failed)
}
