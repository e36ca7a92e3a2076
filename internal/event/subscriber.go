package event

import (
	"sync"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// Subscriber tracks a group of subscriptions so they can be torn down
// together, e.g. when a panel is removed from the deck.
type Subscriber struct {
	bus Bus

	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// NewSubscriber creates a Subscriber wrapping the given bus.
func NewSubscriber(bus Bus) *Subscriber {
	return &Subscriber{bus: bus}
}

// Subscribe registers a handler and tracks the subscription for Close.
func (s *Subscriber) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	sub, err := s.bus.Subscribe(pattern, handler, opts...)
	if err != nil {
		return nil, err
	}

	s.subs = append(s.subs, sub)
	return sub, nil
}

// SubscribeFunc registers a function handler and tracks the subscription.
func (s *Subscriber) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return s.Subscribe(pattern, fn, opts...)
}

// Close cancels every tracked subscription. Further Subscribe calls fail
// with ErrSubscriberClosed.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, sub := range s.subs {
		_ = s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}

// Count returns the number of tracked subscriptions.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}
