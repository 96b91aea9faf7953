package domain

import (
	"encoding/json"
	"time"
)

// TaskKind distinguishes a plain workspace from one the scheduled-task
// dispatcher drives off its schedule_config.
type TaskKind string

const (
	TaskKindManual    TaskKind = "manual"
	TaskKindScheduled TaskKind = "scheduled"
)

// TaskStatus is a task's lifecycle stage.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is the top-level user-authored workspace. ScheduleConfig and
// AgentPlan are independent opaque-JSON columns: a task can carry either,
// both, or neither, regardless of Kind — Kind only gates whether the
// scheduled-task dispatcher considers ScheduleConfig.
type Task struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Kind           TaskKind        `json:"kind"`
	Status         TaskStatus      `json:"status"`
	StockSymbols   []string        `json:"stock_symbols"`
	Tags           []string        `json:"tags,omitempty"`
	ScheduleConfig json.RawMessage `json:"schedule_config,omitempty"`
	AgentPlan      json.RawMessage `json:"agent_plan,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// ScheduleConfig is the opaque-JSON payload stored on Task.ScheduleConfig,
// read only by the scheduled-task dispatcher.
type ScheduleConfig struct {
	TriggerTime     string `json:"trigger_time"` // "HH:MM", Beijing local
	AnalysisPrompt  string `json:"analysis_prompt,omitempty"`
}

// PlanScheduleType is the trigger kind for an AgentPlan.
type PlanScheduleType string

const (
	ScheduleInterval PlanScheduleType = "interval"
	ScheduleDaily    PlanScheduleType = "daily"
	ScheduleOnce     PlanScheduleType = "once"
)

// PlanSchedule controls when an agent plan is eligible to run.
type PlanSchedule struct {
	Type            PlanScheduleType `json:"type"`
	IntervalMinutes float64          `json:"interval_minutes,omitempty"`
	TriggerTime     string           `json:"trigger_time,omitempty"` // "HH:MM", Beijing local, for daily
	MarketHoursOnly *bool            `json:"market_hours_only,omitempty"`
}

// PlanStepKind enumerates the five pipeline steps, executed in order.
type PlanStepKind string

const (
	StepFetchData      PlanStepKind = "fetch_data"
	StepConditionCheck PlanStepKind = "condition_check"
	StepCaptureScreen  PlanStepKind = "capture_screen"
	StepVisionAnalyze  PlanStepKind = "vision_analyze"
	StepAction         PlanStepKind = "action"
)

// PlanStep is one node of an agent plan's pipeline. ID namespaces this
// step's entry in the pipeline's step_results map.
type PlanStep struct {
	ID     string          `json:"id"`
	Type   PlanStepKind    `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// AgentPlan is the opaque-JSON payload stored on Task.AgentPlan once
// decoded; ExecutionState travels with it as a plain nested field and is
// rewritten as part of the same Task.agent_plan column on every dispatcher
// run, not persisted in a table of its own.
type AgentPlan struct {
	Version        int            `json:"version"`
	Description    string         `json:"description"`
	StockSymbols   []string       `json:"stock_symbols"`
	Enabled        bool           `json:"enabled"`
	Steps          []PlanStep     `json:"steps"`
	Schedule       PlanSchedule   `json:"schedule"`
	ExecutionState ExecutionState `json:"execution_state"`
}

// ExecutionState tracks an agent plan's run history as a set of monotone
// counters, preserved across process restarts. There is no persisted
// status enum: disabled/idle/running/failed is a transient classification
// the dispatcher derives for the duration of one tick, not stored state.
type ExecutionState struct {
	LastExecutedAt      *time.Time `json:"last_executed_at,omitempty"`
	TotalExecutions     int        `json:"total_executions"`
	TotalTriggers       int        `json:"total_triggers"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
}

// AlertConditionType is the kind of live-quote threshold an AlertRule watches.
type AlertConditionType string

const (
	ConditionPriceAbove  AlertConditionType = "price_above"
	ConditionPriceBelow  AlertConditionType = "price_below"
	ConditionChangeAbove AlertConditionType = "change_above"
	ConditionChangeBelow AlertConditionType = "change_below"
	ConditionVolumeRatio AlertConditionType = "volume_ratio"
)

// AlertCondition is the opaque threshold record an AlertRule is evaluated
// against. Threshold's unit depends on Type: a price for price_above/below,
// a percentage for change_above/below, a ratio for volume_ratio.
type AlertCondition struct {
	Type      AlertConditionType `json:"type"`
	Threshold float64            `json:"threshold"`
	Message   string             `json:"message,omitempty"`
}

// AlertRule fires a one-shot notification once its threshold condition
// evaluates true against a live quote.
type AlertRule struct {
	ID          string         `json:"id"`
	TaskID      string         `json:"task_id"`
	Symbol      string         `json:"symbol"`
	AlertType   string         `json:"alert_type"`
	Condition   AlertCondition `json:"condition"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty"`
}

// Indicator is a recurring TDX formula evaluated against one or more
// symbols on its own check interval.
type Indicator struct {
	ID                string     `json:"id"`
	TaskID            string     `json:"task_id"`
	Symbols           []string   `json:"stock_symbols"`
	Name              string     `json:"name"`
	Formula           string     `json:"formula_source"`
	Enabled           bool       `json:"is_active"`
	CheckIntervalSecs int        `json:"check_interval_secs"`
	MarketHoursOnly   bool       `json:"market_hours_only"`
	LastChecked       *time.Time `json:"last_checked,omitempty"`
	LastSignal        string     `json:"last_signal,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// KlineBar is one OHLCV bar of a symbol's daily series.
type KlineBar struct {
	Date   string  `json:"date"` // "YYYY-MM-DD"
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// StockQuote is a single real-time snapshot for a symbol.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PrevClose     float64 `json:"prev_close"`
	Turnover      float64 `json:"turnover"`
	VolumeRatio   float64 `json:"volume_ratio"`
	// PERatio is not returned by the quote endpoint; kept for shape parity
	// with a fuller fundamentals fetch (see original_source market.rs), 0
	// until such a fetch is wired.
	PERatio     float64   `json:"pe_ratio"`
	MarketCap   float64   `json:"market_cap"`
	Timestamp   time.Time `json:"timestamp"`
}

// StockSearchResult is a single match from the fuzzy symbol search endpoint.
type StockSearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"` // "沪" or "深"
}

// WatchlistItem is a thin CRUD entity: a symbol the user wants listed in a UI panel.
type WatchlistItem struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleLog records one dispatcher firing for audit/dedup purposes;
// the scheduled-task dispatcher's dedup keys on task_id plus the
// Beijing-local calendar day of ExecutedAt, not on Kind.
type ScheduleLog struct {
	ID          string          `json:"id"`
	TaskID      string          `json:"task_id"`
	ExecutedAt  time.Time       `json:"executed_at"`
	Status      string          `json:"status"`
	StepResults json.RawMessage `json:"step_results,omitempty"`
}

// Message is a notification the scheduler produced for consumption by an
// external UI; rendering it is not this module's job.
type Message struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Symbol    string    `json:"symbol"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// KnowledgeEntry is a freeform note the agent's knowledge base stores and
// later retrieves by keyword; title and content are both indexed.
type KnowledgeEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
