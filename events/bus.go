package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Generation events
	GenerationStarted   EventType = "generation:started"
	GenerationFragment  EventType = "generation:fragment"
	GenerationCompleted EventType = "generation:completed"
	GenerationCancelled EventType = "generation:cancelled"
	GenerationFailed    EventType = "generation:failed"

	// History events
	HistoryChanged EventType = "history:changed"

	// Application events
	ProjectChanged     EventType = "project:changed"
	ConnectionChanged  EventType = "connection:changed"
	ModelsLoaded       EventType = "models:loaded"
	PreferencesChanged EventType = "preferences:changed"
)

// Event represents an event in the system
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

// Handler is a function that handles events
type Handler func(event Event)

// Bus delivers events to subscribers synchronously, on the emitting
// goroutine, in the order they are emitted. Handlers must not block.
type Bus struct {
	handlers map[EventType][]Handler
	all      []Handler
	mutex    sync.RWMutex
	logger   *zap.Logger
}

// NewBus creates a new event bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   logger.Named("events"),
	}
}

// Subscribe adds an event handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives every event
func (b *Bus) SubscribeAll(handler Handler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.all = append(b.all, handler)
}

// Unsubscribe removes all handlers for a specific event type
func (b *Bus) Unsubscribe(eventType EventType) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.handlers, eventType)
}

// Emit publishes an event to all registered handlers. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Emit(eventType EventType, data any) {
	if b == nil {
		return
	}

	b.mutex.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventType])+len(b.all))
	handlers = append(handlers, b.handlers[eventType]...)
	handlers = append(handlers, b.all...)
	b.mutex.RUnlock()

	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, handler := range handlers {
		b.dispatch(handler, event)
	}
}

func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic",
				zap.String("event", string(event.Type)),
				zap.Any("panic", r))
		}
	}()
	handler(event)
}
