package scheduler

import (
	"github.com/aristath/arduino-watcher/internal/calendar"
	"github.com/rs/zerolog"
)

// TickJob is the scheduler's single periodic job: one tick fans out to
// the four dispatchers in a fixed order. Alerts only run during trading
// hours; indicators run every tick and skip their market_hours_only
// indicators while the market is closed; scheduled tasks and agent plans
// always run (each decides internally whether it is actually due). A panic or error in
// one dispatcher is logged and does not prevent the rest from running.
type TickJob struct {
	calendar   *calendar.Calendar
	alerts     *AlertDispatcher
	indicators *IndicatorDispatcher
	scheduled  *ScheduledTaskDispatcher
	agentPlans *AgentPlanDispatcher
	log        zerolog.Logger
}

// NewTickJob wires the four dispatchers behind a single cron job.
func NewTickJob(cal *calendar.Calendar, alerts *AlertDispatcher, indicators *IndicatorDispatcher, scheduled *ScheduledTaskDispatcher, agentPlans *AgentPlanDispatcher, log zerolog.Logger) *TickJob {
	return &TickJob{
		calendar:   cal,
		alerts:     alerts,
		indicators: indicators,
		scheduled:  scheduled,
		agentPlans: agentPlans,
		log:        log.With().Str("component", "tick").Logger(),
	}
}

// Run executes one scheduler tick.
func (j *TickJob) Run() error {
	marketOpen := j.calendar.IsMarketHours()

	if marketOpen {
		j.runGuarded("alerts", j.alerts.Run)
	}
	j.runGuarded("indicators", func() error { return j.indicators.Run(marketOpen) })
	j.runGuarded("scheduled_tasks", j.scheduled.Run)
	j.runGuarded("agent_plans", func() error { return j.agentPlans.Run(marketOpen) })

	return nil
}

// Name identifies this job to the cron scheduler.
func (j *TickJob) Name() string { return "tick" }

func (j *TickJob) runGuarded(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Interface("panic", r).Str("dispatcher", name).Msg("dispatcher panicked")
		}
	}()
	if err := fn(); err != nil {
		j.log.Error().Err(err).Str("dispatcher", name).Msg("dispatcher failed")
	}
}
