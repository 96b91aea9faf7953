package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arduino-watcher/internal/database"
	"github.com/aristath/arduino-watcher/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return New(db, log)
}

func mustCreateTask(t *testing.T, s *Store, kind domain.TaskKind) *domain.Task {
	task := &domain.Task{Title: "watch 600519", Kind: kind, StockSymbols: []string{"600519"}}
	require.NoError(t, s.CreateTask(task))
	return task
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, domain.TaskStatusActive, got.Status)
	assert.Equal(t, []string{"600519"}, got.StockSymbols)
}

func TestUpdateTaskRejectsUnknownID(t *testing.T) {
	s := newTestStore(t)
	task := &domain.Task{ID: "does-not-exist", Title: "ghost"}
	err := s.UpdateTask(task)
	assert.Error(t, err)
}

func TestDeleteTaskCascadesAlerts(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	alert := &domain.AlertRule{TaskID: task.ID, Symbol: "600519", AlertType: "price_above"}
	require.NoError(t, s.CreateAlertRule(alert))

	require.NoError(t, s.DeleteTask(task.ID))

	rules, err := s.ListAlertRules()
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestAlertRuleLifecycle(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	alert := &domain.AlertRule{
		TaskID:    task.ID,
		Symbol:    "600519",
		AlertType: "price_above",
		Condition: domain.AlertCondition{Type: domain.ConditionPriceAbove, Threshold: 1800},
	}
	require.NoError(t, s.CreateAlertRule(alert))
	assert.True(t, alert.Active)

	active, err := s.ListActiveAlerts()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1800.0, active[0].Condition.Threshold)

	all, err := s.ListAlertRules()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeactivateAlert(alert.ID))
	active, err = s.ListActiveAlerts()
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.DeleteAlertRule(alert.ID))
	all, err = s.ListAlertRules()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIndicatorLifecycle(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	ind := &domain.Indicator{
		TaskID:  task.ID,
		Symbols: []string{"600519", "000001"},
		Name:    "macd cross",
		Formula: "MA5 := MA(CLOSE, 5);\nSIGNAL : CLOSE > MA5;",
		Enabled: true,
	}
	require.NoError(t, s.CreateIndicator(ind))
	assert.Equal(t, 60, ind.CheckIntervalSecs)

	got, err := s.GetIndicator(ind.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"600519", "000001"}, got.Symbols)

	enabled, err := s.ListEnabledIndicators()
	require.NoError(t, err)
	require.Len(t, enabled, 1)

	got.Enabled = false
	require.NoError(t, s.UpdateIndicator(got))

	enabled, err = s.ListEnabledIndicators()
	require.NoError(t, err)
	assert.Empty(t, enabled)

	all, err := s.ListIndicators()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.RecordIndicatorCheck(ind.ID, got.UpdatedAt, "bullish_cross"))
	refreshed, err := s.GetIndicator(ind.ID)
	require.NoError(t, err)
	assert.Equal(t, "bullish_cross", refreshed.LastSignal)
	require.NotNil(t, refreshed.LastChecked)

	require.NoError(t, s.DeleteIndicator(ind.ID))
	_, err = s.GetIndicator(ind.ID)
	assert.Error(t, err)
}

func TestCreateIndicatorRejectsInvalidFormula(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	ind := &domain.Indicator{TaskID: task.ID, Symbols: []string{"600519"}, Name: "broken", Formula: "(("}
	err := s.CreateIndicator(ind)
	assert.Error(t, err)
}

func TestWatchlistLifecycle(t *testing.T) {
	s := newTestStore(t)
	item := &domain.WatchlistItem{Symbol: "600519", Name: "Kweichow Moutai"}
	require.NoError(t, s.CreateWatchlistItem(item))

	items, err := s.ListWatchlistItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "600519", items[0].Symbol)

	require.NoError(t, s.DeleteWatchlistItem(item.ID))
	items, err = s.ListWatchlistItems()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindManual)

	msg := &domain.Message{TaskID: task.ID, Symbol: "600519", Body: "price crossed 1800"}
	require.NoError(t, s.CreateMessage(msg))

	messages, err := s.ListMessages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.False(t, messages[0].Read)

	require.NoError(t, s.MarkMessageRead(msg.ID))
	messages, err = s.ListMessages()
	require.NoError(t, err)
	assert.True(t, messages[0].Read)
}

func TestScheduleLogsRecordAndDedup(t *testing.T) {
	s := newTestStore(t)
	task := mustCreateTask(t, s, domain.TaskKindScheduled)

	dayStart := time.Now().UTC().Add(-24 * time.Hour)

	fired, err := s.FiredToday(task.ID, dayStart)
	require.NoError(t, err)
	assert.False(t, fired)

	require.NoError(t, s.RecordScheduleLog(&domain.ScheduleLog{TaskID: task.ID, Status: "completed"}))

	fired, err = s.FiredToday(task.ID, dayStart)
	require.NoError(t, err)
	assert.True(t, fired)

	logs, err := s.ListScheduleLogs(task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "completed", logs[0].Status)
}
