package scheduler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
)

func TestShouldExecutePlanInterval(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	plan := &domain.AgentPlan{
		Schedule: domain.PlanSchedule{Type: domain.ScheduleInterval, IntervalMinutes: 5},
	}
	if !shouldExecutePlan(plan, now) {
		t.Fatal("never-executed interval plan should be due immediately")
	}

	recent := now.Add(-2 * time.Minute)
	plan.ExecutionState.LastExecutedAt = &recent
	if shouldExecutePlan(plan, now) {
		t.Fatal("interval plan executed 2m ago with a 5m interval should not be due")
	}

	stale := now.Add(-6 * time.Minute)
	plan.ExecutionState.LastExecutedAt = &stale
	if !shouldExecutePlan(plan, now) {
		t.Fatal("interval plan executed 6m ago with a 5m interval should be due")
	}
}

func TestShouldExecutePlanDaily(t *testing.T) {
	// 10:00 UTC = 18:00 Beijing.
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	plan := &domain.AgentPlan{
		Schedule: domain.PlanSchedule{Type: domain.ScheduleDaily, TriggerTime: "18:00"},
	}
	if !shouldExecutePlan(plan, now) {
		t.Fatal("daily plan at matching trigger_time with no prior run should be due")
	}

	sameDay := now.Add(-1 * time.Hour)
	plan.ExecutionState.LastExecutedAt = &sameDay
	if shouldExecutePlan(plan, now) {
		t.Fatal("daily plan already run today should not re-fire")
	}

	priorDay := now.Add(-25 * time.Hour)
	plan.ExecutionState.LastExecutedAt = &priorDay
	if !shouldExecutePlan(plan, now) {
		t.Fatal("daily plan last run on a prior Beijing day should be due again")
	}
}

func TestShouldExecutePlanOnce(t *testing.T) {
	now := time.Now().UTC()
	plan := &domain.AgentPlan{Schedule: domain.PlanSchedule{Type: domain.ScheduleOnce}}
	if !shouldExecutePlan(plan, now) {
		t.Fatal("once plan with zero triggers should be due")
	}
	plan.ExecutionState.TotalTriggers = 1
	if shouldExecutePlan(plan, now) {
		t.Fatal("once plan with a trigger already recorded should never fire again")
	}
}

func TestEvaluateStepConditionsAnyLogic(t *testing.T) {
	cfg, _ := json.Marshal(map[string]interface{}{
		"conditions": []map[string]interface{}{
			{"symbol": "600519", "field": "price", "operator": "gt", "value": 1000},
			{"symbol": "000001", "field": "price", "operator": "lt", "value": 5},
		},
		"logic": "any",
	})
	quotes, _ := json.Marshal([]map[string]interface{}{
		{"symbol": "600519", "price": 1800.0},
		{"symbol": "000001", "price": 12.0},
	})
	results := map[string]json.RawMessage{"fetch": quotes}
	if !evaluateStepConditions(cfg, results) {
		t.Fatal("expected any-logic to be satisfied by the first condition")
	}
}

func TestEvaluateStepConditionsAllLogic(t *testing.T) {
	cfg, _ := json.Marshal(map[string]interface{}{
		"conditions": []map[string]interface{}{
			{"symbol": "600519", "field": "price", "operator": "gt", "value": 1000},
			{"symbol": "000001", "field": "price", "operator": "lt", "value": 5},
		},
		"logic": "all",
	})
	quotes, _ := json.Marshal([]map[string]interface{}{
		{"symbol": "600519", "price": 1800.0},
		{"symbol": "000001", "price": 12.0},
	})
	results := map[string]json.RawMessage{"fetch": quotes}
	if evaluateStepConditions(cfg, results) {
		t.Fatal("expected all-logic to fail since the second condition is false")
	}
}

func TestEvaluateStepConditionsNoConditionsDefaultsTrue(t *testing.T) {
	cfg, _ := json.Marshal(map[string]interface{}{})
	if !evaluateStepConditions(cfg, nil) {
		t.Fatal("a condition_check with no conditions configured should pass through")
	}
}
