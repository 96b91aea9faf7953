package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/store"
	"github.com/rs/zerolog"
)

// ScheduledTaskDispatcher fires cron-style tasks at minute granularity,
// deduplicated so each task triggers at most once per Beijing-local day.
type ScheduledTaskDispatcher struct {
	store  *store.Store
	events *events.Manager
	log    zerolog.Logger
}

// NewScheduledTaskDispatcher wires the scheduled-task dispatcher's
// collaborators.
func NewScheduledTaskDispatcher(s *store.Store, em *events.Manager, log zerolog.Logger) *ScheduledTaskDispatcher {
	return &ScheduledTaskDispatcher{store: s, events: em, log: log.With().Str("dispatcher", "scheduled_tasks").Logger()}
}

// Run loads every active scheduled task and fires the ones whose
// trigger_time matches the current Beijing-local minute and that haven't
// already logged a firing today.
func (d *ScheduledTaskDispatcher) Run() error {
	tasks, err := d.store.ListScheduledActiveTasks()
	if err != nil {
		return fmt.Errorf("scheduled tasks: %w", err)
	}

	beijingNow := time.Now().UTC().Add(8 * time.Hour)
	currentMinute := beijingNow.Format("15:04")
	startOfDayUTC := beijingNow.Truncate(24 * time.Hour).Add(-8 * time.Hour)

	for _, t := range tasks {
		var cfg domain.ScheduleConfig
		if err := json.Unmarshal(t.ScheduleConfig, &cfg); err != nil {
			d.log.Warn().Err(err).Str("task_id", t.ID).Msg("malformed schedule_config")
			continue
		}
		if cfg.TriggerTime != currentMinute {
			continue
		}

		firedToday, err := d.store.FiredToday(t.ID, startOfDayUTC)
		if err != nil {
			d.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to check firing dedup")
			continue
		}
		if firedToday {
			continue
		}

		prompt := cfg.AnalysisPrompt
		if prompt == "" {
			prompt = "分析这些股票的当日表现"
		}

		d.events.Emit(events.ScheduledTaskTriggered, "scheduled_tasks", map[string]interface{}{
			"task_id":       t.ID,
			"prompt":        prompt,
			"stock_symbols": t.StockSymbols,
		})

		if err := d.store.RecordScheduleLog(&domain.ScheduleLog{
			TaskID: t.ID,
			Status: "triggered",
		}); err != nil {
			d.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to record schedule log")
		}
	}

	return nil
}

// Name identifies this job to the cron scheduler.
func (d *ScheduledTaskDispatcher) Name() string { return "scheduled-task-dispatcher" }
