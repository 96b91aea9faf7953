package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
)

// CreateAlertRule persists a new threshold alert, armed immediately.
func (s *Store) CreateAlertRule(a *domain.AlertRule) error {
	conditionJSON, err := json.Marshal(a.Condition)
	if err != nil {
		return wrap("create alert rule", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	a.Active = true

	_, err = s.db.Exec(
		`INSERT INTO alert_rules (id, task_id, symbol, alert_type, condition_json, active, created_at, triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		a.ID, a.TaskID, a.Symbol, a.AlertType, string(conditionJSON), a.Active, a.CreatedAt,
	)
	return wrap("create alert rule", err)
}

// ListActiveAlerts returns every alert rule still armed: not yet
// triggered and not deactivated.
func (s *Store) ListActiveAlerts() ([]*domain.AlertRule, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, symbol, alert_type, condition_json, active, created_at, triggered_at
		 FROM alert_rules WHERE active = 1`,
	)
	if err != nil {
		return nil, wrap("list active alerts", err)
	}
	defer rows.Close()

	var out []*domain.AlertRule
	for rows.Next() {
		var a domain.AlertRule
		var triggeredAt sql.NullTime
		var conditionJSON string
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Symbol, &a.AlertType, &conditionJSON, &a.Active, &a.CreatedAt, &triggeredAt); err != nil {
			return nil, wrap("list active alerts scan", err)
		}
		if err := json.Unmarshal([]byte(conditionJSON), &a.Condition); err != nil {
			return nil, wrap("list active alerts decode condition", err)
		}
		if triggeredAt.Valid {
			a.TriggeredAt = &triggeredAt.Time
		}
		out = append(out, &a)
	}
	return out, wrap("list active alerts rows", rows.Err())
}

// DeactivateAlert marks an alert rule as fired. Alerts are one-shot:
// once triggered they never fire again.
func (s *Store) DeactivateAlert(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE alert_rules SET active = 0, triggered_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return wrap("deactivate alert", err)
}

// ListAlertRules returns every alert rule regardless of active state,
// newest first, for a management UI (the dispatcher itself only ever
// reads ListActiveAlerts).
func (s *Store) ListAlertRules() ([]*domain.AlertRule, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, symbol, alert_type, condition_json, active, created_at, triggered_at
		 FROM alert_rules ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, wrap("list alert rules", err)
	}
	defer rows.Close()

	var out []*domain.AlertRule
	for rows.Next() {
		var a domain.AlertRule
		var triggeredAt sql.NullTime
		var conditionJSON string
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Symbol, &a.AlertType, &conditionJSON, &a.Active, &a.CreatedAt, &triggeredAt); err != nil {
			return nil, wrap("list alert rules scan", err)
		}
		if err := json.Unmarshal([]byte(conditionJSON), &a.Condition); err != nil {
			return nil, wrap("list alert rules decode condition", err)
		}
		if triggeredAt.Valid {
			a.TriggeredAt = &triggeredAt.Time
		}
		out = append(out, &a)
	}
	return out, wrap("list alert rules rows", rows.Err())
}

// DeleteAlertRule removes an alert rule outright.
func (s *Store) DeleteAlertRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM alert_rules WHERE id = ?`, id)
	return wrap("delete alert rule", err)
}
