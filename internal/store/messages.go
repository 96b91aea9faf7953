package store

import (
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
)

// CreateMessage records a notification produced by a dispatcher for later
// pickup by an external UI; rendering it is not this module's job.
func (s *Store) CreateMessage(m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO messages (id, task_id, symbol, body, created_at, read) VALUES (?, ?, ?, ?, ?, 0)`,
		m.ID, m.TaskID, m.Symbol, m.Body, m.CreatedAt,
	)
	return wrap("create message", err)
}

// ListMessages returns every message, newest first.
func (s *Store) ListMessages() ([]*domain.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, symbol, body, created_at, read FROM messages ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, wrap("list messages", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.TaskID, &m.Symbol, &m.Body, &m.CreatedAt, &m.Read); err != nil {
			return nil, wrap("list messages scan", err)
		}
		out = append(out, &m)
	}
	return out, wrap("list messages rows", rows.Err())
}

// MarkMessageRead flags a message as read.
func (s *Store) MarkMessageRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE messages SET read = 1 WHERE id = ?`, id)
	return wrap("mark message read", err)
}
