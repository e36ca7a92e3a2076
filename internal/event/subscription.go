package event

import (
	"sync/atomic"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// SubscriptionState is the lifecycle state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription receives events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means delivery is temporarily suspended.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription is permanently dead.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is a live registration on the bus.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Topic returns the subscribed topic pattern.
	Topic() topic.Topic

	// State returns the current lifecycle state.
	State() SubscriptionState

	// IsActive reports whether the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops delivery to this subscription.
	Pause()

	// Resume restarts delivery after a pause.
	Resume()

	// Cancel permanently ends the subscription. A cancelled subscription
	// cannot be resumed.
	Cancel()
}

// SubscriptionConfig holds per-subscription settings.
type SubscriptionConfig struct {
	// Priority determines execution order; lower values run first.
	Priority Priority

	// DeliveryMode selects sync or async delivery.
	DeliveryMode DeliveryMode

	// Filter, when set, must return true for an event to be delivered.
	Filter FilterFunc

	// Once auto-cancels the subscription after its first delivery.
	Once bool
}

// DefaultSubscriptionConfig returns the default settings: normal priority,
// synchronous delivery, no filter.
func DefaultSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		Priority:     PriorityNormal,
		DeliveryMode: DeliverySync,
	}
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithDeliveryMode sets the delivery mode.
func WithDeliveryMode(m DeliveryMode) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.DeliveryMode = m
	}
}

// WithFilter sets a delivery predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce auto-cancels the subscription after the first delivery.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// subscription is the internal Subscription implementation.
type subscription struct {
	id      string
	topic   topic.Topic
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
}

func newSubscription(id string, t topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	config := DefaultSubscriptionConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := &subscription{
		id:      id,
		topic:   t,
		handler: h,
		config:  config,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Topic() topic.Topic {
	return s.topic
}

func (s *subscription) Handler() Handler {
	return s.handler
}

func (s *subscription) Config() SubscriptionConfig {
	return s.config
}

func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// Pause only transitions an active subscription; cancelled stays cancelled.
func (s *subscription) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume only transitions a paused subscription.
func (s *subscription) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

func (s *subscription) Cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// ShouldDeliver reports whether the event passes the subscription's state
// and filter checks.
func (s *subscription) ShouldDeliver(event any) bool {
	if !s.IsActive() {
		return false
	}
	if s.config.Filter != nil && !s.config.Filter(event) {
		return false
	}
	return true
}
