package event

import "context"

// Priority determines handler execution order within one publish.
// Lower values execute first.
type Priority int

const (
	// PriorityCritical is for state propagation that must run before any
	// observer sees the event, such as hub reflection across panels.
	PriorityCritical Priority = 0

	// PriorityHigh is for rendering and layout handlers.
	PriorityHigh Priority = 100

	// PriorityNormal is the default for UI observers (status line, rulers).
	PriorityNormal Priority = 200

	// PriorityLow is for metrics and logging handlers that run last.
	PriorityLow Priority = 300
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// DeliveryMode specifies how events reach handlers.
type DeliveryMode int

const (
	// DeliverySync executes the handler on the publisher's goroutine before
	// Publish returns. This is the default: panel synchronization depends on
	// reflection completing within the publishing call.
	DeliverySync DeliveryMode = iota

	// DeliveryAsync queues the event for a worker goroutine. Use for
	// handlers that may block, such as snapshot encoding.
	DeliveryAsync
)

// String returns a human-readable delivery mode name.
func (m DeliveryMode) String() string {
	switch m {
	case DeliverySync:
		return "sync"
	case DeliveryAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Handler processes events. The event parameter is type-erased; handlers
// type-assert to the payload they expect.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// TypedHandlerFunc handles events with a known payload type.
type TypedHandlerFunc[T any] func(ctx context.Context, event Event[T]) error

// AsHandler converts a TypedHandlerFunc to a generic Handler. Events whose
// concrete type does not match are skipped silently.
func AsHandler[T any](fn TypedHandlerFunc[T]) Handler {
	return HandlerFunc(func(ctx context.Context, event any) error {
		if e, ok := event.(Event[T]); ok {
			return fn(ctx, e)
		}
		return nil
	})
}

// FilterFunc is a predicate for filtering events. Return true to deliver.
type FilterFunc func(event any) bool

// Stats contains event bus statistics.
type Stats struct {
	// EventsPublished is the total number of events published.
	EventsPublished uint64

	// EventsDelivered is the total number of successful handler deliveries.
	EventsDelivered uint64

	// EventsDropped is the number of events dropped (async queue full).
	EventsDropped uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscribers is the current number of active subscriptions.
	ActiveSubscribers int

	// QueueDepth is the current async queue depth.
	QueueDepth int
}

// PanicHandler is called when a handler panics. The default isolates the
// panic and discards it; the application installs one that logs.
type PanicHandler func(event any, recovered any)
