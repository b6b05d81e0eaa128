package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

var ErrDispatcherClosed = errors.New("event dispatcher closed")

// EventDispatcher queues domain events for asynchronous delivery. It satisfies
// port.EventPublisher so services do not block on the broker; workers drain
// the queue with Run.
type EventDispatcher struct {
	mu     sync.RWMutex
	queue  chan domain.Event
	closed bool
}

func NewEventDispatcher(queueSize int) *EventDispatcher {
	return &EventDispatcher{queue: make(chan domain.Event, queueSize)}
}

func (d *EventDispatcher) Publish(ctx context.Context, event domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *EventDispatcher) Queue() <-chan domain.Event {
	return d.queue
}

// Close stops accepting events. Workers finish what is already queued.
func (d *EventDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Run delivers queued events to the publisher until the queue is closed.
// Delivery failures are reported to onError and not retried.
func (d *EventDispatcher) Run(publisher port.EventPublisher, timeout time.Duration, onError func(domain.Event, error)) {
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := publisher.Publish(ctx, event); err != nil && onError != nil {
			onError(event, err)
		}
		cancel()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) error { return nil }

func newEvent(t domain.EventType, aggregateID string, payload any, at time.Time) domain.Event {
	return domain.Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Payload:     payload,
	}
}
