// Package panel binds one track's render surface to the declarative
// attribute vocabulary the broadcast hub synchronizes across the deck.
//
// A panel has two mutation entries. Local mutations (Set, SetWindow, the
// zoom and pan helpers) run an update cycle and publish one AttrChanged
// event per effectively changed attribute. ApplyReflected runs the same
// cycle for values arriving from the hub but never publishes; reflected
// applies staying silent is one of the two guards that keep deck
// synchronization loop-free.
//
// Mutating methods are meant to be called from the single deck goroutine;
// accessors are safe from anywhere.
package panel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/trackdeck/internal/data"
	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/event/topic"
	"github.com/dshills/trackdeck/internal/format"
	"github.com/dshills/trackdeck/internal/logging"
	"github.com/dshills/trackdeck/internal/render"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/render/overlay"
)

// Panel errors.
var (
	// ErrUnknownAttr reports an attribute name outside the vocabulary.
	ErrUnknownAttr = errors.New("unknown panel attribute")

	// ErrInvalidValue reports a value that does not parse for its attribute.
	ErrInvalidValue = errors.New("invalid attribute value")

	// ErrDetached reports an operation on a panel removed from the hub.
	ErrDetached = errors.New("panel is detached")
)

// DefaultZoomStep is the window fraction removed (or restored) per zoom
// step.
const DefaultZoomStep = 0.25

// State tracks a panel through its lifecycle.
type State int

const (
	// StateEmpty is a panel with no data; attribute changes are stored and
	// applied on the first load.
	StateEmpty State = iota

	// StateLoaded is a panel showing data.
	StateLoaded

	// StateSyncing is a loaded panel mid-way through applying a reflected
	// attribute.
	StateSyncing

	// StateDetached is a panel removed from the hub. Terminal.
	StateDetached
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateSyncing:
		return "syncing"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Panel owns one track: a render surface plus the attribute map.
type Panel struct {
	id     string
	canvas backend.Canvas

	// Immutable after New.
	zoomStep    float64
	gate        *Gate
	pub         *event.Publisher
	logger      *logging.Logger
	formatter   format.Formatter
	surfaceOpts []render.Option

	mu      sync.Mutex
	state   State
	rect    core.ScreenRect
	attrs   map[Attr]string
	surface *render.Surface
	gen     int
}

// Option configures a panel.
type Option func(*Panel)

// WithSize sets the panel's screen rectangle.
func WithSize(rect core.ScreenRect) Option {
	return func(p *Panel) {
		p.rect = rect
	}
}

// WithMargins sets the margins around the plot area.
func WithMargins(m render.Margins) Option {
	return func(p *Panel) {
		p.surfaceOpts = append(p.surfaceOpts, render.WithMargins(m))
	}
}

// WithColors sets the colormap anchor colors.
func WithColors(lo, hi core.Color) Option {
	return func(p *Panel) {
		p.surfaceOpts = append(p.surfaceOpts, render.WithColors(lo, hi))
	}
}

// WithHighlightColor sets the highlight band color.
func WithHighlightColor(c core.Color) Option {
	return func(p *Panel) {
		p.surfaceOpts = append(p.surfaceOpts, render.WithHighlightColor(c))
	}
}

// WithZoomStep sets the per-step zoom fraction, in (0, 1).
func WithZoomStep(step float64) Option {
	return func(p *Panel) {
		if step > 0 && step < 1 {
			p.zoomStep = step
		}
	}
}

// WithEmitter sets the bus local mutations publish to. Events carry the
// panel's ID as their source, which is what lets the hub skip the origin.
func WithEmitter(bus event.Bus) Option {
	return func(p *Panel) {
		if bus != nil {
			p.pub = event.NewPublisher(bus, p.id)
		}
	}
}

// WithLogger sets the panel's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Panel) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFormatter sets the tooltip formatter.
func WithFormatter(f format.Formatter) Option {
	return func(p *Panel) {
		if f != nil {
			p.formatter = f
		}
	}
}

// WithGate sets the shared update gate.
func WithGate(g *Gate) Option {
	return func(p *Panel) {
		if g != nil {
			p.gate = g
		}
	}
}

// New creates a panel. The surface itself is created lazily on the first
// LoadData; until then attribute changes are stored. Construction runs
// geometry first, then surface configuration, then initial attributes, so
// the surface always sees settled geometry when it appears.
func New(id string, canvas backend.Canvas, opts ...Option) *Panel {
	p := &Panel{
		id:        id,
		canvas:    canvas,
		rect:      core.RectFromSize(0, 0, 12, 80),
		zoomStep:  DefaultZoomStep,
		logger:    logging.NullLogger,
		formatter: format.Default{},
		attrs:     make(map[Attr]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.gate == nil {
		p.gate = NewGate()
	}
	p.logger = p.logger.WithComponent("panel").WithField("id", id)
	return p
}

// ID returns the panel's identifier.
func (p *Panel) ID() string {
	return p.id
}

// State returns the lifecycle state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Get returns one attribute's canonical value.
func (p *Panel) Get(attr Attr) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.attrs[attr]
	return v, ok
}

// Attrs returns a snapshot of the attribute map.
func (p *Panel) Attrs() map[Attr]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[Attr]string, len(p.attrs))
	for k, v := range p.attrs {
		out[k] = v
	}
	return out
}

// Rect returns the panel's screen rectangle.
func (p *Panel) Rect() core.ScreenRect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rect
}

// Loaded reports whether the panel is showing data.
func (p *Panel) Loaded() bool {
	s := p.currentSurface()
	return s != nil && s.Loaded()
}

// Window returns the visible window. ok is false before the first load.
func (p *Panel) Window() (render.Span, bool) {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		return render.Span{}, false
	}
	return s.Window(), true
}

// Domain returns the loaded data's position span. ok is false before the
// first load.
func (p *Panel) Domain() (render.Span, bool) {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		return render.Span{}, false
	}
	return s.Domain(), true
}

// LoadData replaces the panel's items and category rows. The first load
// creates the surface and applies attributes stored while the panel was
// empty; later loads preserve the current window, clamped to the new
// domain. Publishes events.Loaded. Attribute canonicalization is silent:
// loading is a data operation, not an attribute mutation, so nothing is
// reflected to sibling panels.
func (p *Panel) LoadData(domain render.Span, categories []string, items []data.Item) error {
	p.mu.Lock()
	if p.state == StateDetached {
		p.mu.Unlock()
		return ErrDetached
	}
	if p.surface == nil {
		p.buildSurfaceLocked()
	}
	s := p.surface
	start, end, hasStart, hasEnd := p.storedWindowLocked()
	hlStr := p.attrs[AttrHighlight]
	hcStr := p.attrs[AttrHighlightColor]
	p.gen++
	gen := p.gen
	p.state = StateLoaded
	p.mu.Unlock()

	s.Load(domain, categories, items) // resets the window to the new domain

	if hasStart || hasEnd {
		w := s.Window()
		if hasStart {
			w.Start = start
		}
		if hasEnd {
			w.End = end
		}
		if w.Start > w.End {
			w.End = w.Start
		}
		zoomTo(s, w)
	}
	if hcStr != "" {
		if c, err := core.ColorFromHex(hcStr); err == nil {
			s.SetHighlightColor(c)
		}
	}
	if r, ok := overlay.ParseRange(hlStr); ok {
		s.SetHighlight(r, true)
	}

	p.mu.Lock()
	p.syncAttrsLocked(s)
	p.attrs[AttrDataGen] = strconv.Itoa(gen)
	p.mu.Unlock()

	p.logger.Debug("loaded %d items, domain [%g, %g]", len(items), domain.Start, domain.End)
	p.publish(events.TopicDataLoaded, events.Loaded{PanelID: p.id, Count: len(items)})
	return nil
}

// Set mutates one attribute locally. The update cycle runs and one
// AttrChanged event is published per effectively changed attribute,
// window-start before window-end.
func (p *Panel) Set(attr Attr, value string) error {
	w, err := p.canonWrite(attr, value)
	if err != nil {
		return err
	}
	return p.apply([]attrWrite{w}, false)
}

// ApplyReflected applies an attribute reflected from another panel through
// the hub. The same update cycle runs but nothing is published.
func (p *Panel) ApplyReflected(attr Attr, value string) error {
	w, err := p.canonWrite(attr, value)
	if err != nil {
		return err
	}
	return p.apply([]attrWrite{w}, true)
}

// SetWindow sets the visible window to [start, end] in one update cycle,
// swapping reversed bounds.
func (p *Panel) SetWindow(start, end float64) error {
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) {
		return fmt.Errorf("%w: window [%v, %v]", ErrInvalidValue, start, end)
	}
	if start > end {
		start, end = end, start
	}
	return p.apply([]attrWrite{
		{attr: AttrWindowStart, canon: formatFloat(start)},
		{attr: AttrWindowEnd, canon: formatFloat(end)},
	}, false)
}

// SetHighlight sets the highlighted range. ok false clears it.
func (p *Panel) SetHighlight(r overlay.Range, ok bool) error {
	if !ok {
		return p.Set(AttrHighlight, "")
	}
	return p.Set(AttrHighlight, overlay.FormatRange(r.Normalize()))
}

// Pan shifts the window by delta residues, keeping its width; the shift
// shortens at the domain edge.
func (p *Panel) Pan(delta float64) error {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		p.logger.Debug("pan before load ignored")
		return nil
	}
	w := s.Window()
	d := s.Domain()
	if delta > 0 && w.End+delta > d.End {
		delta = d.End - w.End
	}
	if delta < 0 && w.Start+delta < d.Start {
		delta = d.Start - w.Start
	}
	if delta == 0 {
		return nil
	}
	return p.SetWindow(w.Start+delta, w.End+delta)
}

// ZoomAbout zooms by one step about the residue under the given screen
// column, so the position under the pointer stays put. Wheel behavior.
func (p *Panel) ZoomAbout(col int, in bool) error {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		p.logger.Debug("zoom before load ignored")
		return nil
	}
	w := s.Window()
	anchor, ok := s.ValueAt(col)
	if !ok {
		anchor = (w.Start + w.End) / 2
	}
	return p.zoomAbout(s, anchor, in)
}

// ZoomBy zooms by one step about the window center. Keyboard behavior.
func (p *Panel) ZoomBy(in bool) error {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		p.logger.Debug("zoom before load ignored")
		return nil
	}
	w := s.Window()
	return p.zoomAbout(s, (w.Start+w.End)/2, in)
}

// zoomAbout computes the stepped window around anchor and routes it through
// SetWindow so the change runs the normal attribute cycle.
func (p *Panel) zoomAbout(s *render.Surface, anchor float64, in bool) error {
	factor := 1 - p.zoomStep
	if !in {
		factor = 1 / factor
	}
	w := s.Window()
	return p.SetWindow(anchor-(anchor-w.Start)*factor, anchor+(w.End-anchor)*factor)
}

// ResetZoom restores the full-domain window.
func (p *Panel) ResetZoom() error {
	s := p.currentSurface()
	if s == nil || !s.Loaded() {
		return nil
	}
	d := s.Domain()
	return p.SetWindow(d.Start, d.End)
}

// HandleHover routes pointer motion into the surface. The resulting hover
// notification is formatted into a tooltip and published on the bus.
func (p *Panel) HandleHover(x, y int) {
	s := p.currentSurface()
	if s == nil {
		return
	}
	s.Hover(x, y)
}

// PositionAt maps a screen column to the nearest residue position.
func (p *Panel) PositionAt(col int) (int, bool) {
	s := p.currentSurface()
	if s == nil {
		return 0, false
	}
	v, ok := s.ValueAt(col)
	if !ok {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Render runs a full declarative pass.
func (p *Panel) Render() {
	if s := p.currentSurface(); s != nil {
		s.Render()
	}
}

// Resize moves the panel to a new screen rectangle. The window is
// preserved; only the pixel mapping changes.
func (p *Panel) Resize(rect core.ScreenRect) {
	p.mu.Lock()
	p.rect = rect
	s := p.surface
	p.mu.Unlock()
	if s != nil {
		s.Resize(rect)
	}
}

// Detach marks the panel removed from the hub. Terminal: further loads and
// attribute applies return ErrDetached.
func (p *Panel) Detach() {
	p.mu.Lock()
	if p.state == StateDetached {
		p.mu.Unlock()
		return
	}
	p.state = StateDetached
	p.mu.Unlock()
	p.publish(events.TopicPanelDetached, events.Detached{PanelID: p.id})
}

// attrWrite is one validated attribute assignment within an update cycle.
type attrWrite struct {
	attr  Attr
	canon string
}

// attrDelta records one attribute's transition within an update cycle.
type attrDelta struct {
	attr Attr
	old  string
	val  string
}

// canonWrite validates one attribute assignment.
func (p *Panel) canonWrite(attr Attr, value string) (attrWrite, error) {
	canon, err := canonicalize(attr, value)
	if err != nil {
		return attrWrite{}, err
	}
	if attr == AttrHighlight && canon == "" && strings.TrimSpace(value) != "" {
		p.logger.Warn("malformed highlight %q treated as none", value)
	}
	return attrWrite{attr: attr, canon: canon}, nil
}

// apply runs one update cycle: mutate the attribute map (collapsing the
// window pair so start ≤ end holds at every instant), drive the surface
// imperatively for each touched concern, reconcile attributes with the
// surface's effective state, consult the gate, and publish the transitions
// for local cycles only.
func (p *Panel) apply(writes []attrWrite, reflected bool) error {
	p.mu.Lock()
	if p.state == StateDetached {
		p.mu.Unlock()
		return ErrDetached
	}

	prevStart := p.attrs[AttrWindowStart]
	prevEnd := p.attrs[AttrWindowEnd]

	var deltas []attrDelta
	for _, w := range writes {
		if cur, ok := p.attrs[w.attr]; ok && cur == w.canon {
			continue
		}
		deltas = append(deltas, p.setAttrLocked(w.attr, w.canon)...)
	}
	deltas = compactDeltas(deltas)
	if len(deltas) == 0 {
		p.mu.Unlock()
		return nil
	}

	if p.surface == nil {
		// Empty panel: store only; the first load applies these.
		p.mu.Unlock()
		if !reflected {
			p.emit(deltas)
		}
		return nil
	}

	s := p.surface
	syncing := reflected && p.state == StateLoaded
	if syncing {
		p.state = StateSyncing
	}

	needZoom, needHighlight, needColor := false, false, false
	for _, d := range deltas {
		switch d.attr {
		case AttrWindowStart, AttrWindowEnd:
			needZoom = true
		case AttrHighlight:
			needHighlight = true
		case AttrHighlightColor:
			needColor = true
		}
	}
	start, _ := strconv.ParseFloat(p.attrs[AttrWindowStart], 64)
	end, _ := strconv.ParseFloat(p.attrs[AttrWindowEnd], 64)
	hlStr := p.attrs[AttrHighlight]
	hcStr := p.attrs[AttrHighlightColor]
	p.mu.Unlock()

	// Imperative routing: the cheap path per touched concern.
	if needZoom {
		zoomTo(s, render.Span{Start: start, End: end})
	}
	if needHighlight {
		if r, ok := overlay.ParseRange(hlStr); ok {
			s.SetHighlight(r, true)
		} else {
			s.SetHighlight(overlay.Range{}, false)
		}
	}
	if needColor {
		if c, err := core.ColorFromHex(hcStr); err == nil {
			s.SetHighlightColor(c)
		}
	}

	p.mu.Lock()
	if needZoom {
		// Clamping may have moved the effective window away from the
		// requested one; attributes echo what is on screen.
		deltas = replaceWindowDeltas(deltas, p.reconcileWindowLocked(prevStart, prevEnd, s.Window()))
	}
	changed := make([]Attr, 0, len(deltas))
	for _, d := range deltas {
		changed = append(changed, d.attr)
	}
	full := len(changed) > 0 && !p.gate.Suppress(changed)
	if syncing {
		p.state = StateLoaded
	}
	p.mu.Unlock()

	if full {
		s.Render()
	}
	if !reflected {
		p.emit(deltas)
	}
	return nil
}

// setAttrLocked writes the requested value, collapsing the window pair
// when the write would invert it. Returns the transitions written, with
// window-start ordered before window-end.
func (p *Panel) setAttrLocked(attr Attr, canon string) []attrDelta {
	deltas := []attrDelta{{attr: attr, old: p.attrs[attr], val: canon}}
	p.attrs[attr] = canon

	switch attr {
	case AttrWindowStart:
		if es, ok := p.attrs[AttrWindowEnd]; ok {
			s, _ := strconv.ParseFloat(canon, 64)
			e, perr := strconv.ParseFloat(es, 64)
			if perr == nil && s > e {
				deltas = append(deltas, attrDelta{attr: AttrWindowEnd, old: es, val: canon})
				p.attrs[AttrWindowEnd] = canon
			}
		}
	case AttrWindowEnd:
		if ss, ok := p.attrs[AttrWindowStart]; ok {
			e, _ := strconv.ParseFloat(canon, 64)
			s, perr := strconv.ParseFloat(ss, 64)
			if perr == nil && e < s {
				deltas = append([]attrDelta{{attr: AttrWindowStart, old: ss, val: canon}}, deltas...)
				p.attrs[AttrWindowStart] = canon
			}
		}
	}
	return deltas
}

// reconcileWindowLocked stores the surface's effective window into the
// attribute map and returns the transitions relative to the pre-cycle
// values. A request that clamps back to the pre-cycle window yields no
// transitions and therefore no events.
func (p *Panel) reconcileWindowLocked(prevStart, prevEnd string, eff render.Span) []attrDelta {
	effStart, effEnd := formatFloat(eff.Start), formatFloat(eff.End)
	p.attrs[AttrWindowStart] = effStart
	p.attrs[AttrWindowEnd] = effEnd

	var deltas []attrDelta
	if prevStart != effStart {
		deltas = append(deltas, attrDelta{attr: AttrWindowStart, old: prevStart, val: effStart})
	}
	if prevEnd != effEnd {
		deltas = append(deltas, attrDelta{attr: AttrWindowEnd, old: prevEnd, val: effEnd})
	}
	return deltas
}

// replaceWindowDeltas swaps the window transitions for the reconciled
// ones, keeping them ahead of other attributes.
func replaceWindowDeltas(deltas, win []attrDelta) []attrDelta {
	out := make([]attrDelta, 0, len(deltas)+len(win))
	out = append(out, win...)
	for _, d := range deltas {
		if d.attr == AttrWindowStart || d.attr == AttrWindowEnd {
			continue
		}
		out = append(out, d)
	}
	return out
}

// compactDeltas merges repeated transitions of one attribute (first old,
// last value) and drops those that net to no change.
func compactDeltas(in []attrDelta) []attrDelta {
	var merged []attrDelta
	for _, d := range in {
		found := false
		for i := range merged {
			if merged[i].attr == d.attr {
				merged[i].val = d.val
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, d)
		}
	}
	kept := merged[:0]
	for _, d := range merged {
		if d.old != d.val {
			kept = append(kept, d)
		}
	}
	return kept
}

// storedWindowLocked parses the window attribute pair.
func (p *Panel) storedWindowLocked() (start, end float64, hasStart, hasEnd bool) {
	if v, ok := p.attrs[AttrWindowStart]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			start, hasStart = f, true
		}
	}
	if v, ok := p.attrs[AttrWindowEnd]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			end, hasEnd = f, true
		}
	}
	return start, end, hasStart, hasEnd
}

// syncAttrsLocked re-reads the surface's effective state into the
// attribute map, so attributes always echo what is on screen.
func (p *Panel) syncAttrsLocked(s *render.Surface) {
	w := s.Window()
	p.attrs[AttrWindowStart] = formatFloat(w.Start)
	p.attrs[AttrWindowEnd] = formatFloat(w.End)
	if r, ok := s.Highlight(); ok {
		p.attrs[AttrHighlight] = overlay.FormatRange(r)
	} else {
		p.attrs[AttrHighlight] = ""
	}
	p.attrs[AttrHighlightColor] = s.HighlightColor().Hex()
}

// buildSurfaceLocked creates the surface on first load and hooks its
// notifications into the bus.
func (p *Panel) buildSurfaceLocked() {
	opts := append([]render.Option{render.WithTitle(p.id)}, p.surfaceOpts...)
	s := render.New(p.canvas, p.rect, opts...)
	s.AddListener(surfaceEvents{p})
	p.surface = s
}

// currentSurface returns the surface, nil before the first load.
func (p *Panel) currentSurface() *render.Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

// zoomTo drives the surface to the given window, padding by the half-unit
// convention so edge positions keep their full blocks visible.
func zoomTo(s *render.Surface, w render.Span) {
	s.Zoom(w.Start-0.5, w.End+0.5)
}

// emit publishes one AttrChanged per transition, in cycle order.
func (p *Panel) emit(deltas []attrDelta) {
	for _, d := range deltas {
		p.publish(events.TopicPanelAttrChanged, events.AttrChanged{
			PanelID: p.id,
			Attr:    string(d.attr),
			Value:   d.val,
			Old:     d.old,
		})
	}
}

// publish sends an event with this panel as source. Fire and forget; a
// stopped bus is not an error.
func (p *Panel) publish(t topic.Topic, payload any) {
	if p.pub == nil {
		return
	}
	if err := p.pub.Publish(context.Background(), t, payload); err != nil && !errors.Is(err, event.ErrBusNotRunning) {
		p.logger.Debug("publish %s: %v", t, err)
	}
}

// surfaceEvents forwards surface notifications onto the bus. The surface
// never publishes itself; ownership of bus traffic stays with the panel.
type surfaceEvents struct {
	p *Panel
}

func (se surfaceEvents) ZoomChanged(w render.Span) {
	se.p.publish(events.TopicPanelZoom, events.Zoom{PanelID: se.p.id, Start: w.Start, End: w.End})
}

func (se surfaceEvents) HoverMoved(h render.HoverInfo) {
	se.p.hoverMoved(h)
}

func (se surfaceEvents) Rendered(w render.Span) {
	se.p.publish(events.TopicPanelRendered, events.Rendered{PanelID: se.p.id, Start: w.Start, End: w.End})
}

// hoverMoved formats the datum under the pointer and publishes the hover.
func (p *Panel) hoverMoved(h render.HoverInfo) {
	hv := events.Hover{
		PanelID:  p.id,
		Position: h.Position,
		Category: h.Category,
		OK:       h.OK,
	}
	if h.OK {
		text, err := p.formatter.Format(h.Item)
		if err != nil {
			p.logger.Warn("tooltip format: %v", err)
		} else {
			hv.Tooltip = text
		}
	}
	p.publish(events.TopicPanelHover, hv)
}
