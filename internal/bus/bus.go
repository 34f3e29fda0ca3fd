// Package bus is the in-process publish/subscribe registry that fans
// inbound protocol events out to application callbacks.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives the typed payload of one event.
type Handler func(data any)

// Subscription identifies one registration. The same function may be
// registered multiple times; each registration gets its own Subscription
// and must be removed individually.
type Subscription struct {
	event string
	fn    Handler
}

// Bus dispatches events to subscribers in registration order. A panic in
// one subscriber is recovered and logged so the remaining subscribers still
// run.
type Bus struct {
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string][]*Subscription
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]*Subscription),
	}
}

// On appends fn to the subscriber list for event.
func (b *Bus) On(event string, fn Handler) *Subscription {
	sub := &Subscription{event: event, fn: fn}
	b.mu.Lock()
	b.subs[event] = append(b.subs[event], sub)
	b.mu.Unlock()
	return sub
}

// Off removes the given registration. Removing a subscription that is not
// present (or was already removed) is a no-op.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.event]
	for i, s := range list {
		if s == sub {
			b.subs[sub.event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit invokes every subscriber of event, in registration order, with data.
func (b *Bus) Emit(event string, data any) {
	b.mu.Lock()
	list := b.subs[event]
	snapshot := make([]*Subscription, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.dispatch(event, sub, data)
	}
}

func (b *Bus) dispatch(event string, sub *Subscription, data any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", event),
				zap.Any("panic", r))
		}
	}()
	sub.fn(data)
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = make(map[string][]*Subscription)
	b.mu.Unlock()
}
