package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
}

func TestBus_StartStop(t *testing.T) {
	bus := NewBus()

	if err := bus.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !bus.IsRunning() {
		t.Error("expected bus to be running after Start()")
	}

	if err := bus.Start(); err != ErrBusAlreadyRunning {
		t.Errorf("expected ErrBusAlreadyRunning, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if bus.IsRunning() {
		t.Error("expected bus to not be running after Stop()")
	}

	if err := bus.Stop(ctx); err != ErrBusNotRunning {
		t.Errorf("expected ErrBusNotRunning, got %v", err)
	}
}

func TestBus_PublishNotRunning(t *testing.T) {
	bus := NewBus()

	err := bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})
	if err != ErrBusNotRunning {
		t.Errorf("expected ErrBusNotRunning, got %v", err)
	}
}

func TestBus_PublishNoTopic(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	if err := bus.Publish(context.Background(), struct{}{}); err != ErrInvalidEvent {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestBus_SyncDelivery(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var got atomic.Int32
	_, err := bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		got.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeFunc() failed: %v", err)
	}

	if err := bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	// Sync delivery completes before Publish returns.
	if got.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", got.Load())
	}
}

func TestBus_PriorityOrder(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var order []string
	record := func(name string) HandlerFunc {
		return func(ctx context.Context, event any) error {
			order = append(order, name)
			return nil
		}
	}

	bus.SubscribeFunc("panel.attr.changed", record("low"), WithPriority(PriorityLow))
	bus.SubscribeFunc("panel.attr.changed", record("critical"), WithPriority(PriorityCritical))
	bus.SubscribeFunc("panel.attr.changed", record("normal"), WithPriority(PriorityNormal))

	if err := bus.Publish(context.Background(), Envelope{Topic: "panel.attr.changed"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	want := []string{"critical", "normal", "low"}
	if len(order) != len(want) {
		t.Fatalf("got %d deliveries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestBus_WildcardSubscription(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var got atomic.Int32
	bus.SubscribeFunc("panel.*", func(ctx context.Context, event any) error {
		got.Add(1)
		return nil
	})

	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})
	bus.Publish(context.Background(), Envelope{Topic: "panel.hover"})
	bus.Publish(context.Background(), Envelope{Topic: "data.loaded"})

	if got.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", got.Load())
	}
}

func TestBus_ReentrantPublish(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var secondary atomic.Int32
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		secondary.Add(1)
		return nil
	})
	bus.SubscribeFunc("panel.attr.changed", func(ctx context.Context, event any) error {
		// Publishing from inside a handler must not deadlock.
		return bus.Publish(ctx, Envelope{Topic: "panel.zoom"})
	})

	if err := bus.Publish(context.Background(), Envelope{Topic: "panel.attr.changed"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if secondary.Load() != 1 {
		t.Errorf("nested handler ran %d times, want 1", secondary.Load())
	}
}

func TestBus_HandlerErrorIsolated(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var after atomic.Int32
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		return errors.New("boom")
	}, WithPriority(PriorityCritical))
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		after.Add(1)
		return nil
	}, WithPriority(PriorityNormal))

	if err := bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if after.Load() != 1 {
		t.Error("handler after a failing one did not run")
	}
	stats := bus.Stats()
	if stats.HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", stats.HandlerErrors)
	}
}

func TestBus_PanicIsolated(t *testing.T) {
	var recovered atomic.Value
	bus := NewBus(WithPanicHandler(func(event any, r any) {
		recovered.Store(r)
	}))
	bus.Start()
	defer bus.Stop(context.Background())

	var after atomic.Int32
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		panic("kaboom")
	}, WithPriority(PriorityCritical))
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		after.Add(1)
		return nil
	})

	if err := bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if after.Load() != 1 {
		t.Error("handler after a panicking one did not run")
	}
	if got := bus.Stats().HandlerPanics; got != 1 {
		t.Errorf("HandlerPanics = %d, want 1", got)
	}
	if recovered.Load() != "kaboom" {
		t.Errorf("panic handler got %v, want kaboom", recovered.Load())
	}
}

func TestBus_AsyncDelivery(t *testing.T) {
	bus := NewBus(WithWorkerCount(1))
	bus.Start()

	done := make(chan struct{})
	bus.SubscribeFunc("deck.snapshot", func(ctx context.Context, event any) error {
		close(done)
		return nil
	}, WithDeliveryMode(DeliveryAsync))

	if err := bus.PublishAsync(context.Background(), Envelope{Topic: "deck.snapshot"}); err != nil {
		t.Fatalf("PublishAsync() failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestBus_StopDrainsQueue(t *testing.T) {
	bus := NewBus(WithWorkerCount(1))
	bus.Start()

	var handled atomic.Int32
	bus.SubscribeFunc("deck.snapshot", func(ctx context.Context, event any) error {
		handled.Add(1)
		return nil
	}, WithDeliveryMode(DeliveryAsync))

	for i := 0; i < 10; i++ {
		bus.PublishAsync(context.Background(), Envelope{Topic: "deck.snapshot"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	if handled.Load() != 10 {
		t.Errorf("handled %d events after drain, want 10", handled.Load())
	}
}

func TestBus_Once(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var got atomic.Int32
	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		got.Add(1)
		return nil
	}, WithOnce())

	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})
	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})

	if got.Load() != 1 {
		t.Errorf("once handler ran %d times, want 1", got.Load())
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var got atomic.Int32
	sub, err := bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error {
		got.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeFunc() failed: %v", err)
	}

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if err := bus.Unsubscribe(sub); err != ErrSubscriptionNotFound {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}

	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})
	if got.Load() != 0 {
		t.Error("handler ran after Unsubscribe")
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe("panel.zoom", nil); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := bus.SubscribeFunc("", func(ctx context.Context, event any) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestBus_FilteredSubscription(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var got atomic.Int32
	bus.SubscribeFunc("panel.attr.changed", func(ctx context.Context, event any) error {
		got.Add(1)
		return nil
	}, WithFilter(FilterExcludeSource("expression")))

	pub := NewPublisher(bus, "expression")
	other := NewPublisher(bus, "domains")

	pub.Publish(context.Background(), "panel.attr.changed", nil)
	other.Publish(context.Background(), "panel.attr.changed", nil)

	if got.Load() != 1 {
		t.Errorf("filtered handler ran %d times, want 1", got.Load())
	}
}

func TestBus_StatsCounts(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	bus.SubscribeFunc("panel.zoom", func(ctx context.Context, event any) error { return nil })
	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})
	bus.Publish(context.Background(), Envelope{Topic: "panel.zoom"})

	stats := bus.Stats()
	if stats.EventsPublished != 2 {
		t.Errorf("EventsPublished = %d, want 2", stats.EventsPublished)
	}
	if stats.EventsDelivered != 2 {
		t.Errorf("EventsDelivered = %d, want 2", stats.EventsDelivered)
	}
	if stats.ActiveSubscribers != 1 {
		t.Errorf("ActiveSubscribers = %d, want 1", stats.ActiveSubscribers)
	}
}
