package store

import (
	"database/sql"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
)

// RecordScheduleLog appends an audit entry for a dispatcher firing.
func (s *Store) RecordScheduleLog(l *domain.ScheduleLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.ExecutedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO schedule_logs (id, task_id, executed_at, status, step_results) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.TaskID, l.ExecutedAt, l.Status, nullableJSON(l.StepResults),
	)
	return wrap("record schedule log", err)
}

// ListScheduleLogs returns every audit row for a task, most recent first,
// for a management UI reviewing a scheduled task's or agent plan's
// firing history.
func (s *Store) ListScheduleLogs(taskID string) ([]*domain.ScheduleLog, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, executed_at, status, step_results FROM schedule_logs WHERE task_id = ? ORDER BY executed_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, wrap("list schedule logs", err)
	}
	defer rows.Close()

	var out []*domain.ScheduleLog
	for rows.Next() {
		var l domain.ScheduleLog
		var stepResults sql.NullString
		if err := rows.Scan(&l.ID, &l.TaskID, &l.ExecutedAt, &l.Status, &stepResults); err != nil {
			return nil, wrap("list schedule logs scan", err)
		}
		if stepResults.Valid {
			l.StepResults = []byte(stepResults.String)
		}
		out = append(out, &l)
	}
	return out, wrap("list schedule logs rows", rows.Err())
}

// FiredToday reports whether a task already logged a firing since the
// given timestamp (start of the Beijing-local day), used by the
// scheduled-task dispatcher so each task fires at most once per calendar
// day. Any schedule_log row for the task counts, including rows the
// agent-plan dispatcher writes.
func (s *Store) FiredToday(taskID string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM schedule_logs WHERE task_id = ? AND executed_at >= ?`,
		taskID, since,
	).Scan(&count)
	if err != nil {
		return false, wrap("fired today", err)
	}
	return count > 0, nil
}
