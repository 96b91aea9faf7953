package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	AlertTriggered         EventType = "alert-triggered"
	IndicatorSignal        EventType = "indicator-signal-triggered"
	ScheduledTaskTriggered EventType = "scheduled-task-trigger"
	AgentPlanTriggered     EventType = "agent-plan-trigger"
	AgentPlanVision        EventType = "agent-plan-vision"
	ErrorOccurred          EventType = "error-occurred"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// broadcaster is satisfied by *Hub; kept as an interface so Manager
// doesn't need to import the websocket transport directly.
type broadcaster interface {
	Broadcast(event Event)
}

// Manager handles event emission, logging, and fan-out to any attached
// broadcaster (the websocket hub, in production).
type Manager struct {
	log zerolog.Logger
	hub broadcaster
}

// NewManager creates a new event manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("service", "events").Logger(),
	}
}

// AttachHub wires a broadcaster so every emitted event also reaches
// connected websocket clients.
func (m *Manager) AttachHub(hub broadcaster) {
	m.hub = hub
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	// Log event
	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	if m.hub != nil {
		m.hub.Broadcast(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}
