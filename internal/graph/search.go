// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SearchOptions holds parameters for episode queries.
type SearchOptions struct {
	// Query is the FTS5 full-text search string.
	Query string

	// Source filters by source description (exact match).
	Source string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (o SearchOptions) IsEmpty() bool {
	return o.Query == "" && o.Source == ""
}

// SearchResult is a stored episode with its relevance rank.
type SearchResult struct {
	UUID              string    `json:"uuid" yaml:"uuid"`
	Name              string    `json:"name" yaml:"name"`
	Body              string    `json:"body" yaml:"body"`
	SourceDescription string    `json:"source_description" yaml:"source_description"`
	ReferenceTime     time.Time `json:"reference_time" yaml:"reference_time"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
}

// Search queries stored episodes with optional full-text search and a
// source filter. Full-text queries are ranked by relevance; filter-only
// queries are ordered by reference time.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT e.uuid, e.name, e.body, e.source_description,
				e.reference_time, e.created_at
			FROM episodes_fts
			JOIN episodes e ON e.rowid = episodes_fts.rowid
			WHERE episodes_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT e.uuid, e.name, e.body, e.source_description,
				e.reference_time, e.created_at
			FROM episodes e
			WHERE 1=1`)
	}

	if opts.Source != "" {
		qb.WriteString(` AND e.source_description = ?`)
		args = append(args, opts.Source)
	}

	if useFTS {
		qb.WriteString(` ORDER BY episodes_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY e.reference_time`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying episodes: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r       SearchResult
			source  sql.NullString
			refTime sql.NullString
			created string
		)

		if err := rows.Scan(&r.UUID, &r.Name, &r.Body, &source, &refTime, &created); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if source.Valid {
			r.SourceDescription = source.String
		}
		if refTime.Valid {
			r.ReferenceTime, _ = time.Parse(time.RFC3339Nano, refTime.String)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

		results = append(results, r)
	}

	return results, rows.Err()
}
