package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// subscription is a handler plus the event type it listens to.
// An empty eventType matches every event.
type subscription struct {
	eventType string
	handler   EventHandler
}

// InMemoryEventEmitter dispatches events synchronously, in registration
// order, to handlers registered in memory.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter without handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes handler to every event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.Subscribe("", handler)
}

// Subscribe registers handler for events of eventType only.
func (e *InMemoryEventEmitter) Subscribe(eventType string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{eventType: eventType, handler: handler})
	e.logger.Debug("registered event handler",
		slog.String("handler", fmt.Sprintf("%T", handler)),
		slog.String("event_type", eventType),
		slog.Int("handler_count", len(e.subs)))
}

// EmitEvent delivers event to every matching handler. A failing or panicking
// handler does not stop delivery to the others; all failures are returned
// joined together.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.subs))
	for _, s := range e.subs {
		if s.eventType == "" || s.eventType == event.Type {
			subs = append(subs, s)
		}
	}
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	log.DebugContext(ctx, "emitting event", slog.Int("handler_count", len(subs)))

	var errs []error
	for _, s := range subs {
		if err := deliver(ctx, s.handler, event); err != nil {
			log.ErrorContext(ctx, "handler failed to process event",
				slog.String("handler", fmt.Sprintf("%T", s.handler)),
				slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
