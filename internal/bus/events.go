package bus

import (
	"log/slog"
	"sync"
	"time"

	"slackgram/internal/domain"
)

// Event represents a system event for internal pub/sub.
type Event struct {
	Type      string         // e.g. "relay.delivered", "relay.failed"
	Source    string         // originating component
	Payload   map[string]any // event-specific data
	Timestamp time.Time      // when the event was created
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus provides a topic-based publish/subscribe event system for internal events.
// Handlers registered under "*" receive every event.
type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewEventBus creates a new EventBus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// On registers a handler for the given event type.
// Use "*" to listen to all events.
func (eb *EventBus) On(eventType string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers.
// Handlers are called synchronously in order; a panicking handler is logged and skipped.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.RUnlock()

	for i, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "event", event.Type, "handler", i, "panic", r)
				}
			}()
			h(event)
		}()
	}
}

// --- Well-known event types ---
const (
	EventRelayDelivered = "relay.delivered"
	EventRelaySkipped   = "relay.skipped"
	EventRelayFailed    = "relay.failed"
	EventIdentityLookup = "identity.lookup"
)

// ResultEventType maps a relay status to its event type.
func ResultEventType(status domain.RelayStatus) string {
	switch status {
	case domain.StatusDelivered:
		return EventRelayDelivered
	case domain.StatusFailed:
		return EventRelayFailed
	default:
		return EventRelaySkipped
	}
}

// ResultEvent wraps a relay result for publication. The result is stored under the "result" key.
func ResultEvent(source string, res domain.RelayResult) Event {
	return Event{
		Type:    ResultEventType(res.Status),
		Source:  source,
		Payload: map[string]any{"result": res},
	}
}

// ResultFrom extracts a relay result published with ResultEvent.
func ResultFrom(e Event) (domain.RelayResult, bool) {
	res, ok := e.Payload["result"].(domain.RelayResult)
	return res, ok
}
