package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc/panics"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
)

// ErrWaitTimeout is returned by WaitFor when the event does not fire
// within the given timeout.
var ErrWaitTimeout = errors.New("events: wait timed out")

// Listener handles one delivery of an event. The returned value and
// error are surfaced to Emit callers through the Delivery record.
type Listener func(ctx context.Context, payload any) (any, error)

// Delivery records the outcome of invoking a single listener.
type Delivery struct {
	// Subscription is the id of the subscription that was invoked.
	Subscription int

	// OK is true when the listener returned without an error.
	OK bool

	// Result is the value returned by the listener.
	Result any

	// Err is the listener's error, or the recovered panic wrapped as
	// an error.
	Err error
}

// Subscription is a handle to a registered listener.
type Subscription struct {
	bus      *Bus
	event    string
	id       int
	fn       Listener
	priority int
	once     bool
}

// ID returns the subscription id, unique within its bus.
func (s *Subscription) ID() int { return s.id }

// Cancel removes the subscription from its bus. Cancelling an already
// removed subscription is a no-op.
func (s *Subscription) Cancel() {
	s.bus.remove(s.event, s.id)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report listener failures during
// Publish. The default discards all output.
func WithLogger(logger logr.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithPriority sets the subscription priority. Listeners with higher
// priority run first; listeners with equal priority run in
// registration order. The default priority is 0.
func WithPriority(priority int) SubscribeOption {
	return func(s *Subscription) {
		s.priority = priority
	}
}

// Bus dispatches named events to subscribed listeners. A zero Bus is
// not usable; construct one with New. All methods are safe for
// concurrent use.
type Bus struct {
	logger logr.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string][]*Subscription
}

// New returns an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: logr.Discard(),
		subs:   make(map[string][]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a listener for event and returns its subscription.
func (b *Bus) On(event string, fn Listener, opts ...SubscribeOption) *Subscription {
	return b.subscribe(event, fn, false, opts)
}

// Once registers a listener that is removed after its first delivery.
func (b *Bus) Once(event string, fn Listener, opts ...SubscribeOption) *Subscription {
	return b.subscribe(event, fn, true, opts)
}

func (b *Bus) subscribe(event string, fn Listener, once bool, opts []SubscribeOption) *Subscription {
	sub := &Subscription{
		bus:   b,
		event: event,
		fn:    fn,
		once:  once,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub.id = b.nextID
	b.nextID++

	subs := append(b.subs[event], sub)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].priority > subs[j].priority
	})
	b.subs[event] = subs
	return sub
}

func (b *Bus) remove(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			if len(b.subs[event]) == 0 {
				delete(b.subs, event)
			}
			return
		}
	}
}

// claim snapshots the listeners for event in dispatch order and
// removes any once-listeners so they cannot be delivered twice, even
// by concurrent emits.
func (b *Bus) claim(event string) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	if len(subs) == 0 {
		return nil
	}

	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)

	remaining := subs[:0]
	for _, sub := range subs {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	if len(remaining) == 0 {
		delete(b.subs, event)
	} else {
		b.subs[event] = remaining
	}
	return snapshot
}

// Emit delivers payload to every listener registered for event,
// synchronously and in priority order, and returns one Delivery per
// listener. A listener that returns an error or panics does not stop
// delivery to the remaining listeners.
func (b *Bus) Emit(ctx context.Context, event string, payload any) []Delivery {
	snapshot := b.claim(event)
	if len(snapshot) == 0 {
		return nil
	}

	deliveries := make([]Delivery, 0, len(snapshot))
	for _, sub := range snapshot {
		d := Delivery{Subscription: sub.id}
		recovered := panics.Try(func() {
			d.Result, d.Err = sub.fn(ctx, payload)
		})
		if recovered != nil {
			d.Err = recovered.AsError()
		}
		d.OK = d.Err == nil

		result := metrics.ResultSuccess
		if !d.OK {
			result = metrics.ResultFailure
		}
		metrics.RecordDelivery(event, result)

		deliveries = append(deliveries, d)
	}
	return deliveries
}

// Publish delivers payload like Emit but discards the results,
// logging any listener failures instead.
func (b *Bus) Publish(ctx context.Context, event string, payload any) {
	for _, d := range b.Emit(ctx, event, payload) {
		if d.Err != nil {
			b.logger.Error(d.Err, "event listener failed", "event", event, "subscription", d.Subscription)
		}
	}
}

// WaitFor blocks until event fires, the timeout elapses, or ctx is
// cancelled, and returns the event payload. A timeout of zero or less
// waits until the event fires or ctx is done.
func (b *Bus) WaitFor(ctx context.Context, event string, timeout time.Duration) (any, error) {
	ch := make(chan any, 1)
	sub := b.Once(event, func(_ context.Context, payload any) (any, error) {
		ch <- payload
		return nil, nil
	})

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case payload := <-ch:
		return payload, nil
	case <-timer:
		sub.Cancel()
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		sub.Cancel()
		return nil, ctx.Err()
	}
}

// Pipe republishes every payload delivered on from as an event named
// to, transformed by transform when it is non-nil. Cancelling the
// returned subscription stops the pipe.
func (b *Bus) Pipe(from, to string, transform func(any) any) *Subscription {
	return b.On(from, func(ctx context.Context, payload any) (any, error) {
		if transform != nil {
			payload = transform(payload)
		}
		b.Publish(ctx, to, payload)
		return nil, nil
	})
}

// ListenerCount returns the number of listeners registered for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}
