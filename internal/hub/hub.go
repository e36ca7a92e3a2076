// Package hub reflects panel attribute changes across the deck.
//
// The hub subscribes to the attribute-change topic and re-applies each
// allowlisted value onto every registered panel except the one it came
// from. Loop safety rests on two independent guards: the origin exclusion
// here, and the panels' rule that reflected applies never publish. Either
// alone bounds the cascade; together one local change produces exactly one
// reflection per sibling panel and no echo events at all.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/logging"
	"github.com/dshills/trackdeck/internal/panel"
)

// Hub errors.
var (
	// ErrDuplicatePanel reports a Register with an ID already present.
	ErrDuplicatePanel = errors.New("panel already registered")

	// ErrNotRegistered reports an Unregister for an unknown panel.
	ErrNotRegistered = errors.New("panel not registered")
)

// DefaultReflected returns the default reflected-attribute allowlist: the
// window pair and the highlight range travel, highlight-color stays local.
func DefaultReflected() []panel.Attr {
	return []panel.Attr{panel.AttrWindowStart, panel.AttrWindowEnd, panel.AttrHighlight}
}

// Stats is a snapshot of the hub's reflection counters.
type Stats struct {
	// EventsSeen counts attribute-change events consumed.
	EventsSeen uint64

	// Applied counts successful reflected applies onto sibling panels.
	Applied uint64

	// SkippedOrigin counts panels skipped because they published the event.
	SkippedOrigin uint64

	// SkippedAttr counts events whose attribute is not allowlisted.
	SkippedAttr uint64
}

// Hub synchronizes attributes across registered panels.
type Hub struct {
	logger *logging.Logger
	allow  map[panel.Attr]struct{}
	sub    *event.Subscriber

	mu     sync.Mutex
	panels []*panel.Panel // reflection runs in registration order
	byID   map[string]*panel.Panel

	seen          atomic.Uint64
	applied       atomic.Uint64
	skippedOrigin atomic.Uint64
	skippedAttr   atomic.Uint64
}

// Option configures a hub.
type Option func(*Hub)

// WithReflected replaces the reflected-attribute allowlist.
func WithReflected(attrs ...panel.Attr) Option {
	return func(h *Hub) {
		h.allow = make(map[panel.Attr]struct{}, len(attrs))
		for _, a := range attrs {
			h.allow[a] = struct{}{}
		}
	}
}

// WithLogger sets the hub's logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a hub and subscribes it to the attribute-change topic.
// Reflection runs at critical priority so sibling panels are consistent
// before any UI observer of the same event fires.
func New(bus event.Bus, opts ...Option) (*Hub, error) {
	h := &Hub{
		logger: logging.NullLogger,
		byID:   make(map[string]*panel.Panel),
		sub:    event.NewSubscriber(bus),
	}
	WithReflected(DefaultReflected()...)(h)
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("hub")

	_, err := h.sub.SubscribeFunc(
		events.TopicPanelAttrChanged,
		h.handleAttrChanged,
		event.WithPriority(event.PriorityCritical),
		event.WithDeliveryMode(event.DeliverySync),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", events.TopicPanelAttrChanged, err)
	}
	return h, nil
}

// Register adds a panel to the reflection set.
func (h *Hub) Register(p *panel.Panel) error {
	if p == nil {
		return errors.New("nil panel")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byID[p.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePanel, p.ID())
	}
	h.panels = append(h.panels, p)
	h.byID[p.ID()] = p
	h.logger.Debug("registered panel %s (%d total)", p.ID(), len(h.panels))
	return nil
}

// Unregister removes a panel and detaches it. The panel stops reflecting
// and being reflected onto; its detached state is terminal.
func (h *Hub) Unregister(p *panel.Panel) error {
	if p == nil {
		return errors.New("nil panel")
	}
	h.mu.Lock()
	if _, ok := h.byID[p.ID()]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, p.ID())
	}
	delete(h.byID, p.ID())
	for i, q := range h.panels {
		if q.ID() == p.ID() {
			h.panels = append(h.panels[:i], h.panels[i+1:]...)
			break
		}
	}
	n := len(h.panels)
	h.mu.Unlock()

	p.Detach()
	h.logger.Debug("unregistered panel %s (%d left)", p.ID(), n)
	return nil
}

// Panel returns a registered panel by ID.
func (h *Hub) Panel(id string) (*panel.Panel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.byID[id]
	return p, ok
}

// Panels returns the registered panels in registration order.
func (h *Hub) Panels() []*panel.Panel {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*panel.Panel(nil), h.panels...)
}

// Reflected reports whether the attribute is on the allowlist.
func (h *Hub) Reflected(a panel.Attr) bool {
	_, ok := h.allow[a]
	return ok
}

// Stats returns a snapshot of the reflection counters.
func (h *Hub) Stats() Stats {
	return Stats{
		EventsSeen:    h.seen.Load(),
		Applied:       h.applied.Load(),
		SkippedOrigin: h.skippedOrigin.Load(),
		SkippedAttr:   h.skippedAttr.Load(),
	}
}

// Close cancels the hub's subscriptions. Registered panels are left
// attached; closing stops reflection without tearing the deck down.
func (h *Hub) Close() {
	h.sub.Close()
}

// handleAttrChanged is the reflection pass: one consumed event fans out to
// every registered panel except the origin. Runs synchronously on the
// publishing panel's goroutine, so by the time that panel's Set returns,
// the deck is consistent.
func (h *Hub) handleAttrChanged(_ context.Context, evt any) error {
	env, ok := evt.(event.Envelope)
	if !ok {
		return nil
	}
	ac, ok := env.Payload.(events.AttrChanged)
	if !ok {
		return nil
	}
	h.seen.Add(1)

	attr := panel.Attr(ac.Attr)
	if _, ok := h.allow[attr]; !ok {
		h.skippedAttr.Add(1)
		return nil
	}

	origin := env.Metadata.Source
	if origin == "" {
		origin = ac.PanelID
	}

	h.mu.Lock()
	targets := append([]*panel.Panel(nil), h.panels...)
	h.mu.Unlock()

	for _, p := range targets {
		if p.ID() == origin {
			h.skippedOrigin.Add(1)
			continue
		}
		if err := p.ApplyReflected(attr, ac.Value); err != nil {
			h.logger.Warn("reflect %s=%q onto %s: %v", ac.Attr, ac.Value, p.ID(), err)
			continue
		}
		h.applied.Add(1)
	}
	return nil
}
