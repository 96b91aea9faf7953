package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/arduino-watcher/internal/capture"
	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/store"
	"github.com/rs/zerolog"
)

// AgentPlanDispatcher drives each task's agent_plan state machine: decide
// whether the plan is due, run its step pipeline if so, and persist the
// updated execution counters regardless of outcome.
type AgentPlanDispatcher struct {
	store    *store.Store
	client   *eastmoney.Client
	capturer capture.Capturer
	events   *events.Manager
	log      zerolog.Logger
}

// NewAgentPlanDispatcher wires the agent-plan dispatcher's collaborators.
func NewAgentPlanDispatcher(s *store.Store, client *eastmoney.Client, capturer capture.Capturer, em *events.Manager, log zerolog.Logger) *AgentPlanDispatcher {
	return &AgentPlanDispatcher{
		store:    s,
		client:   client,
		capturer: capturer,
		events:   em,
		log:      log.With().Str("dispatcher", "agent_plans").Logger(),
	}
}

// Run evaluates every active task's agent_plan and executes the ones
// that are due this tick, gated on marketOpen where the plan requires it.
func (d *AgentPlanDispatcher) Run(marketOpen bool) error {
	tasks, err := d.store.ListAgentPlanTasks()
	if err != nil {
		return fmt.Errorf("agent plans: %w", err)
	}

	for _, t := range tasks {
		var plan domain.AgentPlan
		if err := json.Unmarshal(t.AgentPlan, &plan); err != nil {
			d.log.Warn().Err(err).Str("task_id", t.ID).Msg("malformed agent_plan")
			continue
		}
		if !plan.Enabled {
			continue
		}

		marketHoursOnly := true
		if plan.Schedule.MarketHoursOnly != nil {
			marketHoursOnly = *plan.Schedule.MarketHoursOnly
		}
		if marketHoursOnly && !marketOpen {
			continue
		}

		if !shouldExecutePlan(&plan, time.Now().UTC()) {
			continue
		}

		conditionMet, stepResults, stepErr := d.executePlanSteps(t.ID, &plan)

		plan.ExecutionState.TotalExecutions++
		now := time.Now().UTC()
		plan.ExecutionState.LastExecutedAt = &now
		if stepErr != nil {
			plan.ExecutionState.ConsecutiveFailures++
			plan.ExecutionState.LastError = stepErr.Error()
			d.log.Error().Err(stepErr).Str("task_id", t.ID).Msg("agent plan step pipeline failed")
		} else {
			plan.ExecutionState.ConsecutiveFailures = 0
			plan.ExecutionState.LastError = ""
		}

		status := "checked"
		if conditionMet {
			status = "executed"
		}
		resultsJSON, _ := json.Marshal(stepResults)
		if err := d.store.RecordScheduleLog(&domain.ScheduleLog{
			TaskID:      t.ID,
			Status:      status,
			StepResults: resultsJSON,
		}); err != nil {
			d.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to record agent plan schedule log")
		}

		planJSON, err := json.Marshal(plan)
		if err != nil {
			d.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to marshal updated agent plan")
			continue
		}
		if err := d.store.SaveAgentPlan(t.ID, planJSON); err != nil {
			d.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to persist updated agent plan")
		}
	}

	return nil
}

// Name identifies this job to the cron scheduler.
func (d *AgentPlanDispatcher) Name() string { return "agent-plan-dispatcher" }

// shouldExecutePlan decides whether a plan is due this tick, per its
// schedule type.
func shouldExecutePlan(plan *domain.AgentPlan, now time.Time) bool {
	switch plan.Schedule.Type {
	case domain.ScheduleInterval:
		last := plan.ExecutionState.LastExecutedAt
		if last == nil {
			return true
		}
		intervalMinutes := plan.Schedule.IntervalMinutes
		if intervalMinutes <= 0 {
			intervalMinutes = 5
		}
		intervalSecs := intervalMinutes * 60
		return now.Sub(*last).Seconds() >= intervalSecs

	case domain.ScheduleDaily:
		triggerTime := plan.Schedule.TriggerTime
		if triggerTime == "" {
			triggerTime = "09:30"
		}
		beijingNow := now.Add(8 * time.Hour)
		if beijingNow.Format("15:04") != triggerTime {
			return false
		}
		last := plan.ExecutionState.LastExecutedAt
		if last == nil {
			return true
		}
		lastBeijing := last.Add(8 * time.Hour)
		return lastBeijing.Format("2006-01-02") != beijingNow.Format("2006-01-02")

	case domain.ScheduleOnce:
		return plan.ExecutionState.TotalTriggers == 0

	default:
		return false
	}
}

// executePlanSteps runs a plan's pipeline in order, returning whether a
// condition_check step (if any) was satisfied, the accumulated
// step_results (for the schedule_log audit row), and the first error a
// step produced, if any.
func (d *AgentPlanDispatcher) executePlanSteps(taskID string, plan *domain.AgentPlan) (bool, map[string]json.RawMessage, error) {
	stepResults := make(map[string]json.RawMessage)
	conditionMet := true

	for _, step := range plan.Steps {
		switch step.Type {
		case domain.StepFetchData:
			symbols := configStrings(step.Config, "symbols")
			if len(symbols) == 0 {
				symbols = plan.StockSymbols
			}
			quotes := d.client.FetchBatchQuotes(symbols)
			raw, err := json.Marshal(quotes)
			if err != nil {
				return conditionMet, stepResults, fmt.Errorf("fetch_data: %w", err)
			}
			stepResults[step.ID] = raw

		case domain.StepConditionCheck:
			conditionMet = evaluateStepConditions(step.Config, stepResults)
			raw, _ := json.Marshal(map[string]bool{"condition_met": conditionMet})
			stepResults[step.ID] = raw
			if !conditionMet {
				return conditionMet, stepResults, nil
			}

		case domain.StepCaptureScreen:
			windowTitle := configString(step.Config, "window_title")
			if windowTitle == "" {
				return conditionMet, stepResults, fmt.Errorf("capture_screen: missing window_title config")
			}
			imagePath, err := d.capturer.Capture(context.Background(), windowTitle)
			if err != nil {
				return conditionMet, stepResults, fmt.Errorf("capture_screen (%s): %w", windowTitle, err)
			}
			raw, _ := json.Marshal(map[string]string{"image_path": imagePath})
			stepResults[step.ID] = raw

		case domain.StepVisionAnalyze:
			imagePath := findImagePath(stepResults)
			if imagePath == "" {
				return conditionMet, stepResults, fmt.Errorf("vision_analyze: no capture_screen result to read image_path from")
			}
			actionConfig := findActionStepConfig(plan.Steps)

			plan.ExecutionState.TotalTriggers++
			d.events.Emit(events.AgentPlanVision, "agent_plans", map[string]interface{}{
				"task_id":          taskID,
				"plan_description": plan.Description,
				"image_path":       imagePath,
				"vision_config":    step.Config,
				"action_config":    actionConfig,
			})
			if plan.Schedule.Type == domain.ScheduleOnce {
				plan.Enabled = false
			}
			return conditionMet, stepResults, nil

		case domain.StepAction:
			if conditionMet {
				plan.ExecutionState.TotalTriggers++
				d.events.Emit(events.AgentPlanTriggered, "agent_plans", map[string]interface{}{
					"task_id":          taskID,
					"plan_description": plan.Description,
					"step_results":     stepResults,
					"action_config":    step.Config,
				})
				if plan.Schedule.Type == domain.ScheduleOnce {
					plan.Enabled = false
				}
			}
		}
	}

	return conditionMet, stepResults, nil
}

func configString(raw json.RawMessage, key string) string {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func configStrings(raw json.RawMessage, key string) []string {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	arr, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// evaluateStepConditions checks config.conditions against quotes already
// gathered by an earlier fetch_data step, quantified by config.logic.
func evaluateStepConditions(raw json.RawMessage, stepResults map[string]json.RawMessage) bool {
	var cfg struct {
		Conditions []struct {
			Symbol   string  `json:"symbol"`
			Field    string  `json:"field"`
			Operator string  `json:"operator"`
			Value    float64 `json:"value"`
		} `json:"conditions"`
		Logic string `json:"logic"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil || len(cfg.Conditions) == 0 {
		return true
	}

	quotesBySymbol := make(map[string]map[string]interface{})
	for _, raw := range stepResults {
		var quotes []map[string]interface{}
		if err := json.Unmarshal(raw, &quotes); err != nil {
			continue
		}
		for _, q := range quotes {
			symbol, _ := q["symbol"].(string)
			if symbol != "" {
				quotesBySymbol[symbol] = q
			}
		}
	}

	results := make([]bool, 0, len(cfg.Conditions))
	for _, cond := range cfg.Conditions {
		field := cond.Field
		if field == "" {
			field = "price"
		}
		operator := cond.Operator
		if operator == "" {
			operator = "gt"
		}
		quote, ok := quotesBySymbol[cond.Symbol]
		if !ok {
			results = append(results, false)
			continue
		}
		actual, _ := quote[field].(float64)
		var ok2 bool
		switch operator {
		case "gt":
			ok2 = actual > cond.Value
		case "lt":
			ok2 = actual < cond.Value
		case "gte":
			ok2 = actual >= cond.Value
		case "lte":
			ok2 = actual <= cond.Value
		case "eq":
			ok2 = actual == cond.Value
		}
		results = append(results, ok2)
	}

	all := cfg.Logic == "all"
	if all {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

func findImagePath(stepResults map[string]json.RawMessage) string {
	for _, raw := range stepResults {
		var m struct {
			ImagePath string `json:"image_path"`
		}
		if err := json.Unmarshal(raw, &m); err == nil && m.ImagePath != "" {
			return m.ImagePath
		}
	}
	return ""
}

func findActionStepConfig(steps []domain.PlanStep) json.RawMessage {
	for _, step := range steps {
		if step.Type == domain.StepAction {
			return step.Config
		}
	}
	return nil
}
