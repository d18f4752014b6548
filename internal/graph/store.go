// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "kb.db"
)

// Store is a local SQLite-backed episode sink with FTS5 search.
type Store struct {
	db         *sql.DB
	graphDir   string
	maxResults int
}

// NewStore opens or creates the episode database at graphDir/index/kb.db,
// creating the schema if it does not exist.
func NewStore(cfg types.GraphConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		graphDir:   cfg.Dir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			source_description TEXT,
			reference_time TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_uuid ON episodes(uuid)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='episodes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE episodes_fts USING fts5(body, content=episodes, content_rowid=rowid)`,
			`CREATE TRIGGER episodes_ai AFTER INSERT ON episodes BEGIN
				INSERT INTO episodes_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
			`CREATE TRIGGER episodes_ad AFTER DELETE ON episodes BEGIN
				INSERT INTO episodes_fts(episodes_fts, rowid, body) VALUES('delete', old.rowid, old.body);
			END`,
			`CREATE TRIGGER episodes_au AFTER UPDATE ON episodes BEGIN
				INSERT INTO episodes_fts(episodes_fts, rowid, body) VALUES('delete', old.rowid, old.body);
				INSERT INTO episodes_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Ingest inserts an episode and returns its generated UUID handle.
func (s *Store) Ingest(ctx context.Context, ep types.Episode) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (uuid, name, body, source_description, reference_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, ep.Name, ep.Body, ep.SourceDescription,
		ep.ReferenceTime.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting episode %q: %w", ep.Name, err)
	}
	return id, nil
}

// Update replaces the episode identified by id in place, keeping the same
// handle. An unknown id falls back to a fresh insert so that a cache
// pointing at a record the store no longer has still converges.
func (s *Store) Update(ctx context.Context, id string, ep types.Episode) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE episodes SET name = ?, body = ?, source_description = ?, reference_time = ?
		 WHERE uuid = ?`,
		ep.Name, ep.Body, ep.SourceDescription,
		ep.ReferenceTime.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return "", fmt.Errorf("updating episode %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("updating episode %s: %w", id, err)
	}
	if affected == 0 {
		return s.Ingest(ctx, ep)
	}
	return id, nil
}

// Delete removes the episode identified by id. Deleting an unknown id is
// not an error; the record is already gone.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE uuid = ?`, id); err != nil {
		return fmt.Errorf("deleting episode %s: %w", id, err)
	}
	return nil
}

// Clear removes every episode from the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM episodes`); err != nil {
		return fmt.Errorf("clearing episodes: %w", err)
	}
	return nil
}

// Count returns the number of stored episodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM episodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting episodes: %w", err)
	}
	return n, nil
}
