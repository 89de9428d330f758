// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Any subscribes a handler to every event type.
const Any EventType = "*"

var (
	ErrBusClosed = errors.New("event bus is shutting down")
	ErrBusFull   = errors.New("event channel full")
)

// Bus is an in-memory event bus. Publish never blocks; events that do not fit
// in the buffer are dropped.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	eventChan  chan Event
	bufferSize int
	published  atomic.Uint64
	dropped    atomic.Uint64
}

func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers:   make(map[EventType]map[string]Handler),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		eventChan:  make(chan Event, bufferSize),
		bufferSize: bufferSize,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for eventType, or for every type when eventType is Any.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, eventBus: b, typ: eventType}
}

func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues event for asynchronous delivery.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}
	select {
	case b.eventChan <- event:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

func (b *Bus) handlersFor(t EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Handler, len(b.handlers[t])+len(b.handlers[Any]))
	for id, h := range b.handlers[t] {
		out[id] = h
	}
	for id, h := range b.handlers[Any] {
		out[id] = h
	}
	return out
}

// PublishSync delivers event to all handlers before returning.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.handlersFor(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

// processEvents delivers queued events in order until shutdown, then drains the queue.
func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.eventChan:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			if err := b.PublishSync(b.ctx, event); err != nil {
				b.logger.Error("Failed to process event",
					zap.String("event_type", string(event.Type())),
					zap.Error(err))
			}
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}
	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops the bus after delivering queued events.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats is a snapshot of bus counters.
type Stats struct {
	BufferSize      int
	Pending         int
	Published       uint64
	Dropped         uint64
	HandlersPerType map[EventType]int
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[EventType]int, len(b.handlers))
	for t, h := range b.handlers {
		counts[t] = len(h)
	}
	return Stats{
		BufferSize:      b.bufferSize,
		Pending:         len(b.eventChan),
		Published:       b.published.Load(),
		Dropped:         b.dropped.Load(),
		HandlersPerType: counts,
	}
}
