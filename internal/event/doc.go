// Package event provides the publish/subscribe bus that connects panels,
// the broadcast hub, and UI observers without direct dependencies.
//
// # Topics
//
// Events use hierarchical dot-notation topics:
//
//	panel.attr.changed   - a panel attribute was mutated locally
//	panel.hover          - the pointer moved over a datum
//	panel.zoom           - a panel's visible window changed
//	data.reloaded        - a watched data file was reparsed
//
// Subscription patterns may use wildcards: "panel.*" matches one further
// segment, "panel.**" any number.
//
// # Delivery
//
// Synchronous delivery is the default and the one the deck's update cycle is
// built on: handlers run on the publisher's goroutine in priority order, so
// when a panel publishes an attribute change, hub reflection onto the
// sibling panels has completed before the publishing call returns.
// Asynchronous delivery queues the event for a small worker pool and is
// reserved for handlers that may block, such as PNG snapshot encoding.
//
// # Priorities
//
// Handlers for one publish execute lowest value first:
//
//	PriorityCritical - hub reflection, must precede every observer
//	PriorityHigh     - rendering and layout
//	PriorityNormal   - UI observers (default)
//	PriorityLow      - metrics, logging
//
// # Usage
//
//	bus := event.NewBus()
//	if err := bus.Start(); err != nil {
//		...
//	}
//	defer bus.Stop(context.Background())
//
//	sub, err := bus.SubscribeFunc("panel.attr.changed", onChange,
//		event.WithPriority(event.PriorityCritical))
//
//	pub := event.NewPublisher(bus, "expression")
//	err = pub.Publish(ctx, "panel.attr.changed", payload)
//
// Handlers may publish further events while being dispatched; the registry
// hands out snapshots, so re-entrant publishes never deadlock.
//
// # Errors and panics
//
// A handler error is wrapped in HandlerError and counted, not propagated to
// the publisher; a broadcast must not fail because one observer did. Panics
// are recovered into PanicError and reported through the bus's panic
// handler.
package event
