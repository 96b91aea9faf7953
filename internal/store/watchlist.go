package store

import (
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
)

// CreateWatchlistItem adds a symbol to the watchlist panel's backing store.
func (s *Store) CreateWatchlistItem(w *domain.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO watchlist_items (id, symbol, name, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Symbol, w.Name, w.Note, w.CreatedAt,
	)
	return wrap("create watchlist item", err)
}

// ListWatchlistItems returns every watchlist item, newest first.
func (s *Store) ListWatchlistItems() ([]*domain.WatchlistItem, error) {
	rows, err := s.db.Query(
		`SELECT id, symbol, name, note, created_at FROM watchlist_items ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, wrap("list watchlist items", err)
	}
	defer rows.Close()

	var out []*domain.WatchlistItem
	for rows.Next() {
		var w domain.WatchlistItem
		if err := rows.Scan(&w.ID, &w.Symbol, &w.Name, &w.Note, &w.CreatedAt); err != nil {
			return nil, wrap("list watchlist items scan", err)
		}
		out = append(out, &w)
	}
	return out, wrap("list watchlist items rows", rows.Err())
}

// DeleteWatchlistItem removes a symbol from the watchlist.
func (s *Store) DeleteWatchlistItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM watchlist_items WHERE id = ?`, id)
	return wrap("delete watchlist item", err)
}
