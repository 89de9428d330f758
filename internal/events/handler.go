// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events of a specific type.
type Handler interface {
	// Handle processes an event. Should not block.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher is the fire-and-forget side of the bus.
type Publisher interface {
	Publish(event Event) error
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) error { return nil }
