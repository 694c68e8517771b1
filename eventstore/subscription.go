package eventstore

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriptionFailed wraps terminal subscription errors so consumers have
// a stable sentinel to test against with errors.Is.
var ErrSubscriptionFailed = errors.New("subscription failed")

// Subscription is a cancellable consumer handle for the all-streams feed,
// shared by all engine implementations.
//
// Events are delivered in global position order on the channel returned by
// Events. The channel is closed when the subscription ends, either because
// the consumer's context was canceled (graceful shutdown, Err returns nil)
// or because the feed itself failed (Err returns the cause, wrapped in
// ErrSubscriptionFailed). Delivery is at-least-once across restarts: a
// consumer resuming from its checkpoint must tolerate seeing events it has
// already processed.
type Subscription struct {
	events    chan StoredEvent
	done      chan struct{}
	err       error
	closeOnce sync.Once
}

// NewSubscription creates a Subscription handle for an engine to deliver on.
func NewSubscription() *Subscription {
	return &Subscription{
		events: make(chan StoredEvent),
		done:   make(chan struct{}),
	}
}

// Events returns the channel on which stored events are delivered.
func (s *Subscription) Events() <-chan StoredEvent {
	return s.events
}

// Err returns the terminal error of the subscription, nil for a clean
// shutdown. It blocks until the subscription has ended, so it must only be
// called after the Events channel has been closed or drained.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// Deliver hands one event to the consumer, blocking until it is taken or the
// context is canceled. It reports whether delivery happened. Deliver is for
// engine implementations; consumers only read from Events.
func (s *Subscription) Deliver(ctx context.Context, event StoredEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the subscription with the given terminal error (nil for a clean
// shutdown). Closing more than once is a no-op; the first error wins.
func (s *Subscription) Close(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.events)
		close(s.done)
	})
}
