package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/google/uuid"
)

// CreateTask inserts a new task, assigning an ID if the caller left it blank.
func (s *Store) CreateTask(t *domain.Task) error {
	symbolsJSON, err := json.Marshal(t.StockSymbols)
	if err != nil {
		return wrap("create task", err)
	}
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return wrap("create task", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusActive
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = s.db.Exec(
		`INSERT INTO tasks (id, title, kind, status, stock_symbols, tags, schedule_config, agent_plan, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Kind, t.Status, string(symbolsJSON), string(tagsJSON), nullableJSON(t.ScheduleConfig), nullableJSON(t.AgentPlan), t.CreatedAt, t.UpdatedAt,
	)
	return wrap("create task", err)
}

// GetTask fetches a single task by ID.
func (s *Store) GetTask(id string) (*domain.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTaskGeneric(row)
	if err != nil {
		return nil, wrap("get task", err)
	}
	return t, nil
}

// ListTasks returns every task, most recently updated first.
func (s *Store) ListTasks() ([]*domain.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTaskGeneric(rows)
		if err != nil {
			return nil, wrap("list tasks scan", err)
		}
		out = append(out, t)
	}
	return out, wrap("list tasks rows", rows.Err())
}

// ListScheduledActiveTasks returns active tasks of kind scheduled that
// carry a non-null schedule_config — the set the scheduled-task
// dispatcher iterates each tick.
func (s *Store) ListScheduledActiveTasks() ([]*domain.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskColumns+` FROM tasks WHERE kind = ? AND status = ? AND schedule_config IS NOT NULL`,
		domain.TaskKindScheduled, domain.TaskStatusActive,
	)
	if err != nil {
		return nil, wrap("list scheduled active tasks", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTaskGeneric(rows)
		if err != nil {
			return nil, wrap("list scheduled active tasks scan", err)
		}
		out = append(out, t)
	}
	return out, wrap("list scheduled active tasks rows", rows.Err())
}

// ListAgentPlanTasks returns every active task carrying a non-null
// agent_plan, independent of Kind — the set the agent-plan dispatcher
// iterates each tick.
func (s *Store) ListAgentPlanTasks() ([]*domain.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskColumns+` FROM tasks WHERE status = ? AND agent_plan IS NOT NULL`,
		domain.TaskStatusActive,
	)
	if err != nil {
		return nil, wrap("list agent plan tasks", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTaskGeneric(rows)
		if err != nil {
			return nil, wrap("list agent plan tasks scan", err)
		}
		out = append(out, t)
	}
	return out, wrap("list agent plan tasks rows", rows.Err())
}

// UpdateTask updates the mutable fields of a task.
func (s *Store) UpdateTask(t *domain.Task) error {
	symbolsJSON, err := json.Marshal(t.StockSymbols)
	if err != nil {
		return wrap("update task", err)
	}
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return wrap("update task", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.UpdatedAt = time.Now().UTC()
	var completedAt interface{}
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.Format(time.RFC3339)
	}
	res, err := s.db.Exec(
		`UPDATE tasks SET title = ?, status = ?, stock_symbols = ?, tags = ?, schedule_config = ?, agent_plan = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		t.Title, t.Status, string(symbolsJSON), string(tagsJSON), nullableJSON(t.ScheduleConfig), nullableJSON(t.AgentPlan), t.UpdatedAt, completedAt, t.ID,
	)
	if err != nil {
		return wrap("update task", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return wrap("update task", sql.ErrNoRows)
	}
	return nil
}

// SaveAgentPlan rewrites only a task's agent_plan column, used by the
// agent-plan dispatcher after each run to persist the plan's updated
// execution_state and enabled flag.
func (s *Store) SaveAgentPlan(taskID string, planJSON []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE tasks SET agent_plan = ?, updated_at = ? WHERE id = ?`,
		string(planJSON), time.Now().UTC(), taskID,
	)
	return wrap("save agent plan", err)
}

// DeleteTask removes a task (including the agent plan stored on its row)
// and, via ON DELETE CASCADE, its alerts, indicators, schedule logs and
// messages.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return wrap("delete task", err)
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

const taskColumns = `id, title, kind, status, stock_symbols, tags, schedule_config, agent_plan, created_at, updated_at, completed_at`

func scanTaskGeneric(r rowScanner) (*domain.Task, error) {
	var t domain.Task
	var symbolsJSON, tagsJSON sql.NullString
	var scheduleConfig, agentPlan sql.NullString
	var completedAt sql.NullString
	if err := r.Scan(&t.ID, &t.Title, &t.Kind, &t.Status, &symbolsJSON, &tagsJSON, &scheduleConfig, &agentPlan, &t.CreatedAt, &t.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}
	if symbolsJSON.Valid && symbolsJSON.String != "" {
		if err := json.Unmarshal([]byte(symbolsJSON.String), &t.StockSymbols); err != nil {
			return nil, err
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &t.Tags); err != nil {
			return nil, err
		}
	}
	if scheduleConfig.Valid {
		t.ScheduleConfig = []byte(scheduleConfig.String)
	}
	if agentPlan.Valid {
		t.AgentPlan = []byte(agentPlan.String)
	}
	if completedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			t.CompletedAt = &ts
		}
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
