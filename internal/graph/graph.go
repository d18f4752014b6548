// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph provides the ingestion sink implementations: a local
// SQLite episode store with full-text search, and a client for a hosted
// knowledge-graph service. The reconciler depends only on the Sink
// interface; everything behind it (entity extraction, graph schema,
// embeddings) is the sink's business.
package graph

import (
	"context"
	"fmt"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

// Sink durably records episodes. Ingest returns an opaque handle the
// caller can later pass to Update or Delete. All three may fail; retry
// policy is the caller's responsibility.
type Sink interface {
	Ingest(ctx context.Context, ep types.Episode) (string, error)
	Update(ctx context.Context, id string, ep types.Episode) (string, error)
	Delete(ctx context.Context, id string) error
}

// Open constructs the sink selected by cfg.Backend.
func Open(cfg types.GraphConfig) (Sink, func() error, error) {
	switch cfg.Backend {
	case types.BackendSQLite, "":
		store, err := NewStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case types.BackendHTTP:
		remote, err := NewRemote(cfg)
		if err != nil {
			return nil, nil, err
		}
		return remote, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown graph backend %q: use sqlite or http", cfg.Backend)
	}
}
