package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types published by the availability service and the monitor.
const (
	StationOpened    = "station.opened"
	StationClosed    = "station.closed"
	OverrideSet      = "override.set"
	OverrideCleared  = "override.cleared"
	OverrideExpired  = "override.expired"
	ExceptionSaved   = "exception.saved"
	ExceptionDeleted = "exception.deleted"
	ScheduleUpdated  = "schedule.updated"

	// All subscribes a handler to every event type.
	All = "*"
)

// Event represents a lightweight domain event about one station.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	StationID int64           `json:"station_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// New builds an event with a fresh id. Payload marshal failures leave it empty.
func New(eventType string, stationID int64, payload any) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		StationID: stationID,
		CreatedAt: time.Now(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type, or All.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type, then wildcard subscribers.
// A nil bus drops the event.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[All]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event_id", event.ID).Str("type", event.Type).Msg("event handler failed")
		}
	}
}

// LogHandler returns a handler that writes every event to logger at info level.
func LogHandler(logger *zerolog.Logger) EventHandler {
	return func(event Event) error {
		e := logger.Info().
			Str("event_id", event.ID).
			Str("type", event.Type).
			Int64("station_id", event.StationID)
		if len(event.Payload) > 0 {
			e = e.RawJSON("payload", event.Payload)
		}
		e.Msg("event")
		return nil
	}
}
