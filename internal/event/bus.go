package event

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dshills/trackdeck/internal/event/topic"
)

// Bus is the central event bus. Synchronous delivery runs handlers on the
// publisher's goroutine in priority order, which is what keeps panel
// synchronization deterministic: by the time Publish returns, every sync
// subscriber has seen the event.
type Bus interface {
	// Publish sends an event using synchronous delivery.
	Publish(ctx context.Context, event any) error

	// PublishAsync queues an event for worker-goroutine delivery.
	PublishAsync(ctx context.Context, event any) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)

	// SubscribeFunc registers a function handler for a topic pattern.
	SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(sub Subscription) error

	// Start makes the bus operational and spawns async workers.
	Start() error

	// Stop shuts the bus down, waiting for queued async events until the
	// context is cancelled.
	Stop(ctx context.Context) error

	// Stats returns current bus statistics.
	Stats() Stats

	// IsRunning reports whether the bus is accepting events.
	IsRunning() bool
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	queueSize    int
	workerCount  int
	panicHandler PanicHandler
}

func defaultBusConfig() busConfig {
	return busConfig{
		queueSize:   1024,
		workerCount: 2,
	}
}

// WithQueueSize sets the async queue capacity.
func WithQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of async worker goroutines.
func WithWorkerCount(count int) BusOption {
	return func(c *busConfig) {
		if count > 0 {
			c.workerCount = count
		}
	}
}

// WithPanicHandler installs a callback invoked after a handler panic is
// recovered.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		c.panicHandler = h
	}
}

// asyncTask pairs a queued event with its target subscription.
type asyncTask struct {
	ctx   context.Context
	event any
	sub   *subscription
}

// bus is the default Bus implementation.
type bus struct {
	registry *Registry
	config   busConfig

	running atomic.Bool

	mu     sync.Mutex // guards queue/stopCh swaps across Start/Stop
	queue  chan asyncTask
	stopCh chan struct{}
	wg     sync.WaitGroup

	eventsPublished  atomic.Uint64
	eventsDelivered  atomic.Uint64
	eventsDropped    atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates an event bus. The bus must be started before events flow;
// subscriptions may be registered beforehand.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &bus{
		registry: NewRegistry(),
		config:   config,
	}
}

// Start spawns the async workers and begins accepting events.
func (b *bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Load() {
		return ErrBusAlreadyRunning
	}

	b.queue = make(chan asyncTask, b.config.queueSize)
	b.stopCh = make(chan struct{})
	for i := 0; i < b.config.workerCount; i++ {
		b.wg.Add(1)
		go b.worker(b.queue, b.stopCh)
	}

	b.running.Store(true)
	return nil
}

// Stop rejects new events, then drains the async queue. Returns the
// context's error if draining does not finish in time.
func (b *bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}

	close(b.stopCh)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the bus is accepting events.
func (b *bus) IsRunning() bool {
	return b.running.Load()
}

// worker consumes async tasks until stopped, then drains what remains.
func (b *bus) worker(queue chan asyncTask, stopCh chan struct{}) {
	defer b.wg.Done()

	for {
		select {
		case task := <-queue:
			b.invoke(task.ctx, task.event, task.sub)
		case <-stopCh:
			for {
				select {
				case task := <-queue:
					b.invoke(task.ctx, task.event, task.sub)
				default:
					return
				}
			}
		}
	}
}

// Publish delivers the event synchronously to every matching sync
// subscriber, in priority order, before returning. Async subscribers of the
// same topic are queued as well.
func (b *bus) Publish(ctx context.Context, event any) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}

	eventTopic := extractTopic(event)
	if eventTopic == "" {
		return ErrInvalidEvent
	}

	subs := b.registry.MatchActive(eventTopic)
	if len(subs) == 0 {
		return nil
	}

	b.eventsPublished.Add(1)

	for _, sub := range subs {
		if !sub.ShouldDeliver(event) {
			continue
		}
		switch sub.Config().DeliveryMode {
		case DeliverySync:
			b.invoke(ctx, event, sub)
		case DeliveryAsync:
			b.enqueue(ctx, event, sub)
		}
	}

	return nil
}

// PublishAsync queues the event for every matching async subscriber. Sync
// subscribers do not see events published this way.
func (b *bus) PublishAsync(ctx context.Context, event any) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}

	eventTopic := extractTopic(event)
	if eventTopic == "" {
		return ErrInvalidEvent
	}

	subs := b.registry.MatchActive(eventTopic)
	if len(subs) == 0 {
		return nil
	}

	b.eventsPublished.Add(1)

	for _, sub := range subs {
		if sub.Config().DeliveryMode != DeliveryAsync {
			continue
		}
		if !sub.ShouldDeliver(event) {
			continue
		}
		b.enqueue(ctx, event, sub)
	}

	return nil
}

// enqueue adds a task to the async queue, dropping it when full so a slow
// consumer cannot block the publisher.
func (b *bus) enqueue(ctx context.Context, event any, sub *subscription) {
	select {
	case b.queue <- asyncTask{ctx: ctx, event: event, sub: sub}:
	default:
		b.eventsDropped.Add(1)
	}
}

// invoke runs one handler with panic isolation and records the outcome.
func (b *bus) invoke(ctx context.Context, event any, sub *subscription) {
	b.handlersExecuted.Add(1)

	err := b.safeHandle(ctx, event, sub)
	switch {
	case err == nil:
		b.eventsDelivered.Add(1)
	case errors.Is(err, ErrHandlerPanic):
		b.handlerPanics.Add(1)
		if b.config.panicHandler != nil {
			var pe *PanicError
			if errors.As(err, &pe) {
				b.config.panicHandler(event, pe.Value)
			}
		}
	default:
		b.handlerErrors.Add(1)
	}

	if sub.Config().Once && err == nil {
		sub.Cancel()
		b.registry.Remove(sub.ID())
	}
}

// safeHandle calls the handler, converting panics and errors into wrapped
// error values.
func (b *bus) safeHandle(ctx context.Context, event any, sub *subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				SubscriptionID: sub.ID(),
				Topic:          sub.Topic().String(),
				Value:          r,
				Stack:          string(debug.Stack()),
			}
		}
	}()

	if herr := sub.Handler().Handle(ctx, event); herr != nil {
		return &HandlerError{
			SubscriptionID: sub.ID(),
			Topic:          sub.Topic().String(),
			Err:            herr,
		}
	}
	return nil
}

// Subscribe registers a handler for a topic pattern. Safe to call while
// events are in flight; the new subscription takes effect on the next
// publish.
func (b *bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if pattern == "" {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(generateID(), pattern, handler, opts...)
	b.registry.Add(sub)
	return sub, nil
}

// SubscribeFunc registers a function handler for a topic pattern.
func (b *bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.Remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Stats returns a snapshot of bus counters.
func (b *bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		EventsDropped:     b.eventsDropped.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: b.registry.CountActive(),
		QueueDepth:        len(b.queue),
	}
}

// extractTopic pulls the topic out of an event value.
func extractTopic(event any) topic.Topic {
	if tp, ok := event.(TopicProvider); ok {
		return tp.EventTopic()
	}
	if env, ok := event.(Envelope); ok {
		return env.Topic
	}
	return ""
}
