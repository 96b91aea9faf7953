package scheduler

import (
	"fmt"
	"time"

	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/formula"
	"github.com/aristath/arduino-watcher/internal/kline"
	"github.com/aristath/arduino-watcher/internal/store"
	"github.com/rs/zerolog"
)

const indicatorWindowBars = 300

// IndicatorDispatcher re-evaluates every enabled indicator on its own
// check interval and emits a same-day-deduplicated signal per trigger.
type IndicatorDispatcher struct {
	store *store.Store
	bars  *kline.Service
	events *events.Manager
	log   zerolog.Logger
}

// NewIndicatorDispatcher wires the indicator dispatcher's collaborators.
func NewIndicatorDispatcher(s *store.Store, bars *kline.Service, em *events.Manager, log zerolog.Logger) *IndicatorDispatcher {
	return &IndicatorDispatcher{store: s, bars: bars, events: em, log: log.With().Str("dispatcher", "indicators").Logger()}
}

// Run skips any indicator whose check interval hasn't elapsed or that
// requires market hours while the market is closed, evaluates the rest
// against fresh K-lines, and fires indicator-signal-triggered for any
// newly-true signal. marketOpen is passed in rather than gating the whole
// dispatcher, since market_hours_only is a per-indicator attribute, not
// a dispatcher-wide switch.
func (d *IndicatorDispatcher) Run(marketOpen bool) error {
	indicators, err := d.store.ListEnabledIndicators()
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}

	now := time.Now().UTC()
	for _, ind := range indicators {
		if ind.MarketHoursOnly && !marketOpen {
			continue
		}
		if ind.LastChecked != nil {
			elapsed := now.Sub(*ind.LastChecked)
			if elapsed < time.Duration(ind.CheckIntervalSecs)*time.Second {
				continue
			}
		}

		signalKey := ""
		for _, symbol := range ind.Symbols {
			bars, err := d.bars.Fetch(symbol, indicatorWindowBars)
			if err != nil {
				d.log.Warn().Err(err).Str("symbol", symbol).Msg("fetch klines failed")
				continue
			}

			result, err := formula.Evaluate(ind.Formula, bars)
			if err != nil {
				d.log.Warn().Err(err).Str("indicator_id", ind.ID).Msg("formula evaluation failed")
				continue
			}

			today := now.Add(8 * time.Hour).Format("2006-01-02")
			for _, signal := range result.Signals {
				if !signal.Triggered {
					continue
				}

				key := fmt.Sprintf("%s:%s:%s", symbol, signal.Text, today)
				if key == ind.LastSignal {
					continue
				}

				d.events.Emit(events.IndicatorSignal, "indicators", map[string]interface{}{
					"indicator_id":   ind.ID,
					"indicator_name": ind.Name,
					"symbol":         symbol,
					"signal_text":    signal.Text,
					"signal_value":   signal.Value,
					"task_id":        ind.TaskID,
					"date":           today,
				})

				signalKey = key
			}
		}

		if err := d.store.RecordIndicatorCheck(ind.ID, now, signalKey); err != nil {
			d.log.Error().Err(err).Str("indicator_id", ind.ID).Msg("failed to record indicator check")
		}
	}

	return nil
}

// Name identifies this job to the cron scheduler.
func (d *IndicatorDispatcher) Name() string { return "indicator-dispatcher" }
