package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // CGO driver; only modernc.org/sqlite's build lacks usable FTS5
)

// ftsIndex is a side SQLite database holding an FTS5 shadow of the
// knowledge table. modernc.org/sqlite (the driver internal/database uses
// for the main store) doesn't ship FTS5, so the index lives in its own
// database opened with the CGO mattn/go-sqlite3 driver, mirrored on every
// write — the same split-database shape as
// internal/modules/universe/history_db.go's side accessor over the main
// connection.
type ftsIndex struct {
	db *sql.DB
}

// OpenKnowledgeIndex opens (creating if absent) the FTS5 side database at
// path and ensures its shadow table exists. Call once during startup
// wiring; a Store with no index attached returns a clear error from
// CreateKnowledge/SearchKnowledge rather than panicking.
func (s *Store) OpenKnowledgeIndex(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("store: open knowledge index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("store: ping knowledge index: %w", err)
	}
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_fts USING fts5(id UNINDEXED, title, content)`); err != nil {
		db.Close()
		return fmt.Errorf("store: create knowledge_fts: %w", err)
	}

	s.mu.Lock()
	s.fts = &ftsIndex{db: db}
	s.mu.Unlock()
	return nil
}

// CloseKnowledgeIndex closes the FTS side database, if one was opened.
func (s *Store) CloseKnowledgeIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fts == nil {
		return nil
	}
	err := s.fts.db.Close()
	s.fts = nil
	return err
}

// CreateKnowledge inserts a knowledge entry into the canonical table and
// mirrors it into the FTS5 shadow table for SearchKnowledge.
func (s *Store) CreateKnowledge(k *domain.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fts == nil {
		return wrap("create knowledge", fmt.Errorf("knowledge index not configured"))
	}

	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	k.CreatedAt = time.Now().UTC()

	if _, err := s.db.Exec(
		`INSERT INTO knowledge (id, title, content, created_at) VALUES (?, ?, ?, ?)`,
		k.ID, k.Title, k.Content, k.CreatedAt,
	); err != nil {
		return wrap("create knowledge", err)
	}

	if _, err := s.fts.db.Exec(
		`INSERT INTO knowledge_fts (id, title, content) VALUES (?, ?, ?)`,
		k.ID, k.Title, k.Content,
	); err != nil {
		return wrap("create knowledge fts", err)
	}
	return nil
}

// SearchKnowledge runs an FTS5 MATCH query over title and content,
// ranked by bm25, and resolves matches back against the canonical table
// so callers always see the latest created_at/content.
func (s *Store) SearchKnowledge(query string, limit int) ([]*domain.KnowledgeEntry, error) {
	if s.fts == nil {
		return nil, wrap("search knowledge", fmt.Errorf("knowledge index not configured"))
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.fts.db.Query(
		`SELECT id FROM knowledge_fts WHERE knowledge_fts MATCH ? ORDER BY bm25(knowledge_fts) LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, wrap("search knowledge", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("search knowledge scan", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("search knowledge rows", err)
	}

	out := make([]*domain.KnowledgeEntry, 0, len(ids))
	for _, id := range ids {
		var k domain.KnowledgeEntry
		row := s.db.QueryRow(`SELECT id, title, content, created_at FROM knowledge WHERE id = ?`, id)
		if err := row.Scan(&k.ID, &k.Title, &k.Content, &k.CreatedAt); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, wrap("search knowledge resolve", err)
		}
		out = append(out, &k)
	}
	return out, nil
}
