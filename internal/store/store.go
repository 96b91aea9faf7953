// Package store implements the persistent store and its repository-style
// operations over tasks, alerts, indicators, watchlist items, messages,
// schedule logs and the knowledge full-text index.
package store

import (
	"fmt"
	"sync"

	"github.com/aristath/arduino-watcher/internal/database"
	"github.com/rs/zerolog"
)

// Store is a thin repository layer over a single *database.DB connection.
// All of the store's writes are serialized behind mu; the mutex is never
// held across I/O that isn't the database call itself.
type Store struct {
	db  *database.DB
	mu  sync.Mutex
	log zerolog.Logger
	fts *ftsIndex
}

// New creates a Store bound to an already-migrated database.
func New(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
