package samsungcac

import (
	"sync"

	"github.com/google/uuid"
)

// DeviceUpdate is published whenever a device's state changes.
type DeviceUpdate struct {
	Client     *Client
	Device     *Device
	Attributes []Attribute
}

// Subscription identifies one handler registered on an Event.
type Subscription struct {
	id uuid.UUID
}

// Event is a typed publish/subscribe channel. Handlers run synchronously
// on the publishing goroutine, in subscription order.
type Event[T any] struct {
	mu       sync.RWMutex
	handlers []eventHandler[T]
}

type eventHandler[T any] struct {
	id uuid.UUID
	fn func(T)
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (e *Event[T]) Subscribe(fn func(T)) Subscription {
	sub := Subscription{id: uuid.New()}
	e.mu.Lock()
	e.handlers = append(e.handlers, eventHandler[T]{id: sub.id, fn: fn})
	e.mu.Unlock()
	return sub
}

// Unsubscribe removes the handler registered under sub. It reports
// whether a handler was removed.
func (e *Event[T]) Unsubscribe(sub Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == sub.id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

func (e *Event[T]) publish(v T) {
	e.mu.RLock()
	handlers := make([]eventHandler[T], len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h.fn(v)
	}
}
