// Package hooks is the synchronous event bus between the chat session and
// whatever presents it.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/agentchat/internal/logging"
)

// Event names emitted by the chat controller.
const (
	EventTurnStarted      = "turn_started"
	EventDraftUpdated     = "draft_updated"
	EventReasoningUpdated = "reasoning_updated"
	EventReasoningDone    = "reasoning_done"
	EventTurnFinalized    = "turn_finalized"
	EventTurnFailed       = "turn_failed"
	EventConnectionLost   = "connection_lost"
	EventSessionReset     = "session_reset"
	EventSessionExit      = "session_exit"
	EventFeedbackRecorded = "feedback_recorded"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventTurnStarted,
	EventDraftUpdated,
	EventReasoningUpdated,
	EventReasoningDone,
	EventTurnFinalized,
	EventTurnFailed,
	EventConnectionLost,
	EventSessionReset,
	EventSessionExit,
	EventFeedbackRecorded,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and debugging.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

// Emit dispatches an event to all registered handlers synchronously.
// Handlers are called in registration order. Errors are logged but do not
// prevent subsequent handlers from running.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	m.mu.RLock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}

	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// String returns the string value stored under key, or "".
func (p Payload) String(key string) string {
	s, _ := p.Data[key].(string)
	return s
}

// Bool returns the bool value stored under key, or false.
func (p Payload) Bool(key string) bool {
	b, _ := p.Data[key].(bool)
	return b
}
