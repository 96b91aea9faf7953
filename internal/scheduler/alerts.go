package scheduler

import (
	"fmt"

	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/store"
	"github.com/rs/zerolog"
)

// AlertDispatcher evaluates every active threshold alert against a single
// batch quote per tick, firing at most once per rule (alerts are one-shot).
type AlertDispatcher struct {
	store  *store.Store
	client *eastmoney.Client
	events *events.Manager
	log    zerolog.Logger
}

// NewAlertDispatcher wires the alert dispatcher's collaborators.
func NewAlertDispatcher(s *store.Store, client *eastmoney.Client, em *events.Manager, log zerolog.Logger) *AlertDispatcher {
	return &AlertDispatcher{store: s, client: client, events: em, log: log.With().Str("dispatcher", "alerts").Logger()}
}

// Run loads every active alert, batch-quotes the symbols involved, and
// fires any rule whose condition is now satisfied.
func (d *AlertDispatcher) Run() error {
	alerts, err := d.store.ListActiveAlerts()
	if err != nil {
		return fmt.Errorf("alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	symbolSet := make(map[string]struct{})
	for _, a := range alerts {
		symbolSet[a.Symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}

	quotes := d.client.FetchBatchQuotes(symbols)
	quoteBySymbol := make(map[string]*domain.StockQuote, len(quotes))
	for _, q := range quotes {
		quoteBySymbol[q.Symbol] = q
	}

	for _, a := range alerts {
		quote, ok := quoteBySymbol[a.Symbol]
		if !ok {
			continue
		}
		if !alertTriggered(a.Condition, quote) {
			continue
		}

		title := fmt.Sprintf("%s %s", quote.Name, quote.Symbol)
		message := a.Condition.Message
		if message == "" {
			message = "价格提醒触发"
		}
		body := fmt.Sprintf("%s\n当前价格: %.2f 涨跌幅: %.2f%%", message, quote.Price, quote.ChangePercent)

		d.events.Emit(events.AlertTriggered, "alerts", map[string]interface{}{
			"alert_id":       a.ID,
			"symbol":         a.Symbol,
			"name":           quote.Name,
			"price":          quote.Price,
			"change_percent": quote.ChangePercent,
			"title":          title,
			"body":           body,
		})

		if err := d.store.DeactivateAlert(a.ID); err != nil {
			d.log.Error().Err(err).Str("alert_id", a.ID).Msg("failed to deactivate fired alert")
		}
	}

	return nil
}

// Name identifies this job to the cron scheduler.
func (d *AlertDispatcher) Name() string { return "alert-dispatcher" }

func alertTriggered(c domain.AlertCondition, q *domain.StockQuote) bool {
	switch c.Type {
	case domain.ConditionPriceAbove:
		return q.Price >= c.Threshold
	case domain.ConditionPriceBelow:
		return q.Price <= c.Threshold
	case domain.ConditionChangeAbove:
		return q.ChangePercent >= c.Threshold
	case domain.ConditionChangeBelow:
		return q.ChangePercent <= -absFloat(c.Threshold)
	case domain.ConditionVolumeRatio:
		return q.VolumeRatio >= c.Threshold
	default:
		return false
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
