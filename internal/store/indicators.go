package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/formula"
	"github.com/aristath/arduino-watcher/internal/kline"
	"github.com/google/uuid"
)

// indicatorEvalWindowBars mirrors the dispatcher's own evaluation window
// (internal/scheduler/indicators.go's indicatorWindowBars) so an ad-hoc
// check sees the same bar count a scheduled tick would.
const indicatorEvalWindowBars = 300

// IndicatorEvalResult is one symbol's outcome from EvaluateIndicatorNow.
type IndicatorEvalResult struct {
	Symbol string              `json:"symbol"`
	Result *formula.EvalResult `json:"result,omitempty"`
	Err    string              `json:"error,omitempty"`
}

// EvaluateIndicatorNow runs an already-persisted indicator's formula
// against fresh K-lines on demand, without touching last_checked/
// last_signal or emitting an indicator-signal-triggered event — a
// read-only preview for a caller who wants "what would this fire right
// now" ahead of its next scheduled tick.
func (s *Store) EvaluateIndicatorNow(id string, bars *kline.Service) ([]IndicatorEvalResult, error) {
	ind, err := s.GetIndicator(id)
	if err != nil {
		return nil, wrap("evaluate indicator now", err)
	}

	out := make([]IndicatorEvalResult, 0, len(ind.Symbols))
	for _, symbol := range ind.Symbols {
		klines, err := bars.Fetch(symbol, indicatorEvalWindowBars)
		if err != nil {
			out = append(out, IndicatorEvalResult{Symbol: symbol, Err: fmt.Sprintf("fetch klines: %v", err)})
			continue
		}
		result, err := formula.Evaluate(ind.Formula, klines)
		if err != nil {
			out = append(out, IndicatorEvalResult{Symbol: symbol, Err: fmt.Sprintf("evaluate: %v", err)})
			continue
		}
		out = append(out, IndicatorEvalResult{Symbol: symbol, Result: result})
	}
	return out, nil
}

// CreateIndicator validates the formula before persisting.
func (s *Store) CreateIndicator(ind *domain.Indicator) error {
	if result := formula.Validate(ind.Formula); !result.Valid {
		return wrap("create indicator", fmt.Errorf("%s", strings.Join(result.Errors, "; ")))
	}
	symbolsJSON, err := json.Marshal(ind.Symbols)
	if err != nil {
		return wrap("create indicator", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ind.ID == "" {
		ind.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ind.CreatedAt = now
	ind.UpdatedAt = now
	if ind.CheckIntervalSecs <= 0 {
		ind.CheckIntervalSecs = 60
	}

	_, err = s.db.Exec(
		`INSERT INTO indicators (id, task_id, stock_symbols, name, formula_source, is_active, check_interval_secs, market_hours_only, last_checked, last_signal, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
		ind.ID, ind.TaskID, string(symbolsJSON), ind.Name, ind.Formula, ind.Enabled, ind.CheckIntervalSecs, ind.MarketHoursOnly, ind.CreatedAt, ind.UpdatedAt,
	)
	return wrap("create indicator", err)
}

// UpdateIndicator re-validates the formula before updating, whether or
// not it changed.
func (s *Store) UpdateIndicator(ind *domain.Indicator) error {
	if result := formula.Validate(ind.Formula); !result.Valid {
		return wrap("update indicator", fmt.Errorf("%s", strings.Join(result.Errors, "; ")))
	}
	symbolsJSON, err := json.Marshal(ind.Symbols)
	if err != nil {
		return wrap("update indicator", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ind.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE indicators SET stock_symbols = ?, name = ?, formula_source = ?, is_active = ?, check_interval_secs = ?, market_hours_only = ?, updated_at = ? WHERE id = ?`,
		string(symbolsJSON), ind.Name, ind.Formula, ind.Enabled, ind.CheckIntervalSecs, ind.MarketHoursOnly, ind.UpdatedAt, ind.ID,
	)
	if err != nil {
		return wrap("update indicator", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return wrap("update indicator", sql.ErrNoRows)
	}
	return nil
}

const indicatorColumns = `id, task_id, stock_symbols, name, formula_source, is_active, check_interval_secs, market_hours_only, last_checked, last_signal, created_at, updated_at`

func scanIndicator(scan func(...interface{}) error) (*domain.Indicator, error) {
	var ind domain.Indicator
	var symbolsJSON string
	var lastChecked sql.NullTime
	var lastSignal sql.NullString
	if err := scan(&ind.ID, &ind.TaskID, &symbolsJSON, &ind.Name, &ind.Formula, &ind.Enabled, &ind.CheckIntervalSecs, &ind.MarketHoursOnly, &lastChecked, &lastSignal, &ind.CreatedAt, &ind.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(symbolsJSON), &ind.Symbols); err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		ind.LastChecked = &lastChecked.Time
	}
	if lastSignal.Valid {
		ind.LastSignal = lastSignal.String
	}
	return &ind, nil
}

// ListEnabledIndicators returns every enabled indicator.
func (s *Store) ListEnabledIndicators() ([]*domain.Indicator, error) {
	rows, err := s.db.Query(`SELECT ` + indicatorColumns + ` FROM indicators WHERE is_active = 1`)
	if err != nil {
		return nil, wrap("list enabled indicators", err)
	}
	defer rows.Close()

	var out []*domain.Indicator
	for rows.Next() {
		ind, err := scanIndicator(rows.Scan)
		if err != nil {
			return nil, wrap("list enabled indicators scan", err)
		}
		out = append(out, ind)
	}
	return out, wrap("list enabled indicators rows", rows.Err())
}

// ListIndicators returns every indicator regardless of is_active, for a
// management UI (the dispatcher itself only ever reads
// ListEnabledIndicators).
func (s *Store) ListIndicators() ([]*domain.Indicator, error) {
	rows, err := s.db.Query(`SELECT ` + indicatorColumns + ` FROM indicators ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrap("list indicators", err)
	}
	defer rows.Close()

	var out []*domain.Indicator
	for rows.Next() {
		ind, err := scanIndicator(rows.Scan)
		if err != nil {
			return nil, wrap("list indicators scan", err)
		}
		out = append(out, ind)
	}
	return out, wrap("list indicators rows", rows.Err())
}

// GetIndicator fetches a single indicator by ID, used by EvaluateIndicatorNow.
func (s *Store) GetIndicator(id string) (*domain.Indicator, error) {
	row := s.db.QueryRow(`SELECT `+indicatorColumns+` FROM indicators WHERE id = ?`, id)
	ind, err := scanIndicator(row.Scan)
	if err != nil {
		return nil, wrap("get indicator", err)
	}
	return ind, nil
}

// DeleteIndicator removes an indicator.
func (s *Store) DeleteIndicator(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM indicators WHERE id = ?`, id)
	return wrap("delete indicator", err)
}

// RecordIndicatorCheck updates last_checked (always) and, if signalKey is
// non-empty, last_signal — called once per indicator per dispatcher tick
// regardless of whether any signal fired.
func (s *Store) RecordIndicatorCheck(id string, checkedAt time.Time, signalKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if signalKey == "" {
		_, err := s.db.Exec(`UPDATE indicators SET last_checked = ? WHERE id = ?`, checkedAt, id)
		return wrap("record indicator check", err)
	}
	_, err := s.db.Exec(`UPDATE indicators SET last_checked = ?, last_signal = ? WHERE id = ?`, checkedAt, signalKey, id)
	return wrap("record indicator check", err)
}
