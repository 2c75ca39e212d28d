package events

import (
	"context"
	"time"
)

// ScopedBus exposes a Bus under an event name prefix. An event named
// "created" on a scope with prefix "node" is dispatched on the parent
// bus as "node:created", so scoped and unscoped subscribers interact
// through the same listener set.
type ScopedBus struct {
	bus    *Bus
	prefix string
}

// Scoped returns a view of the bus that prefixes every event name
// with prefix and ":".
func (b *Bus) Scoped(prefix string) *ScopedBus {
	return &ScopedBus{bus: b, prefix: prefix}
}

// Scoped returns a nested scope. Prefixes accumulate, so
// b.Scoped("a").Scoped("b") addresses events named "a:b:<event>".
func (s *ScopedBus) Scoped(prefix string) *ScopedBus {
	return &ScopedBus{bus: s.bus, prefix: s.prefix + ":" + prefix}
}

func (s *ScopedBus) scope(event string) string {
	return s.prefix + ":" + event
}

// On registers a listener for the scoped event.
func (s *ScopedBus) On(event string, fn Listener, opts ...SubscribeOption) *Subscription {
	return s.bus.On(s.scope(event), fn, opts...)
}

// Once registers a one-shot listener for the scoped event.
func (s *ScopedBus) Once(event string, fn Listener, opts ...SubscribeOption) *Subscription {
	return s.bus.Once(s.scope(event), fn, opts...)
}

// Emit delivers payload on the scoped event.
func (s *ScopedBus) Emit(ctx context.Context, event string, payload any) []Delivery {
	return s.bus.Emit(ctx, s.scope(event), payload)
}

// Publish delivers payload on the scoped event, discarding results.
func (s *ScopedBus) Publish(ctx context.Context, event string, payload any) {
	s.bus.Publish(ctx, s.scope(event), payload)
}

// WaitFor waits for the scoped event.
func (s *ScopedBus) WaitFor(ctx context.Context, event string, timeout time.Duration) (any, error) {
	return s.bus.WaitFor(ctx, s.scope(event), timeout)
}

// ListenerCount returns the number of listeners for the scoped event.
func (s *ScopedBus) ListenerCount(event string) int {
	return s.bus.ListenerCount(s.scope(event))
}
