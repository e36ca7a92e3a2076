package render

import (
	"math"
	"sync"

	"github.com/dshills/trackdeck/internal/data"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/colormap"
	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/render/overlay"
	"github.com/dshills/trackdeck/internal/render/scale"
)

// DefaultHighlightColor is the marker color used when a track doesn't
// configure its own.
var DefaultHighlightColor = core.Color{R: 0xff, G: 0xeb, B: 0x3b}

type gridKey struct {
	pos int
	cat string
}

// Surface renders one track into a rectangular canvas region. It owns the
// track's view state: domain, window, scales, color extent, and highlight
// marker. A surface exists only after its panel's first data load.
//
// Methods draw cells but never flush; the owner calls Canvas.Show once per
// frame after all surfaces have drawn.
type Surface struct {
	mu sync.RWMutex

	canvas  backend.Canvas
	rect    core.ScreenRect
	margins Margins
	title   string

	xs   scale.Linear
	ys   scale.Band
	cmap *colormap.Scale

	items      []data.Item
	grid       map[gridKey]data.Item
	categories []string

	domain Span
	window Span
	loaded bool

	marker    overlay.Marker
	lastHover HoverInfo
	hasHover  bool

	listeners []Listener
}

// Option configures a surface at construction.
type Option func(*Surface)

// WithMargins overrides the default margins.
func WithMargins(m Margins) Option {
	return func(s *Surface) { s.margins = m }
}

// WithColors sets the heatmap gradient anchors.
func WithColors(lo, hi core.Color) Option {
	return func(s *Surface) { s.cmap = colormap.New(lo, hi) }
}

// WithHighlightColor sets the marker color.
func WithHighlightColor(c core.Color) Option {
	return func(s *Surface) { s.marker.Color = c }
}

// WithTitle sets the title drawn in the top margin.
func WithTitle(title string) Option {
	return func(s *Surface) { s.title = title }
}

// New creates a surface over the given canvas region.
func New(canvas backend.Canvas, rect core.ScreenRect, opts ...Option) *Surface {
	s := &Surface{
		canvas:  canvas,
		rect:    rect,
		margins: DefaultMargins(),
		cmap:    colormap.Default(),
		marker:  overlay.Marker{Color: DefaultHighlightColor},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load establishes or replaces the dataset. The domain and category rows
// are recorded, items are indexed by (position, category), the color
// extent is refit to the new scores, the window resets to the full
// domain, and the surface fully redraws. Reusing a surface across loads
// is the cheap update path; nothing else needs rebuilding.
func (s *Surface) Load(domain Span, categories []string, items []data.Item) {
	s.mu.Lock()
	if domain.Start > domain.End {
		domain.Start, domain.End = domain.End, domain.Start
	}
	s.domain = domain
	s.categories = append([]string(nil), categories...)
	s.items = items
	s.grid = make(map[gridKey]data.Item, len(items))
	for _, it := range items {
		s.grid[gridKey{it.Position, it.Category}] = it
	}
	s.cmap.Fit(data.Scores(items))
	s.window = s.domain
	s.loaded = true
	s.rebuildScales()
	s.render()
	window := s.window
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.Rendered(window)
	}
}

// Zoom sets the window from padded bounds: Zoom(s-0.5, e+0.5) displays
// the window (s, e). Reversed bounds are swapped, out-of-domain bounds
// clamp to the padded domain, and a span narrower than one unit expands
// about its center so the window never inverts. Returns false when the
// surface has no data yet or the resulting window is unchanged; otherwise
// the x scale rebuilds, the surface redraws, and zoom listeners fire.
func (s *Surface) Zoom(min, max float64) bool {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false
	}

	if min > max {
		min, max = max, min
	}
	lo, hi := s.domain.Start-0.5, s.domain.End+0.5
	if min < lo {
		min = lo
	}
	if max > hi {
		max = hi
	}
	if max-min < 1 {
		c := (min + max) / 2
		min, max = c-0.5, c+0.5
		// the padded domain is always at least one unit wide, so the
		// expanded span can be shifted back inside it
		if min < lo {
			min, max = lo, lo+1
		}
		if max > hi {
			min, max = hi-1, hi
		}
	}

	window := Span{Start: min + 0.5, End: max - 0.5}
	if window.Start > window.End {
		// rounding at binade boundaries can invert a collapsed window by
		// one ulp; pin it
		window.End = window.Start
	}
	if window.Equals(s.window) {
		s.mu.Unlock()
		return false
	}

	s.window = window
	s.rebuildScales()
	s.render()
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.ZoomChanged(window)
	}
	return true
}

// Resize moves the surface to a new canvas region. The window is kept;
// both scales rebuild from it, so the same window and extent produce the
// same picture at the new geometry.
func (s *Surface) Resize(rect core.ScreenRect) {
	s.mu.Lock()
	s.rect = rect
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	s.rebuildScales()
	s.render()
	window := s.window
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.Rendered(window)
	}
}

// SetMargins changes the margins and redraws, keeping the window.
func (s *Surface) SetMargins(m Margins) {
	s.mu.Lock()
	s.margins = m
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	s.rebuildScales()
	s.render()
	window := s.window
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.Rendered(window)
	}
}

// Render runs the full draw pass: title, category labels, ruler, heatmap
// grid, highlight marker. Fires Rendered with the effective window.
func (s *Surface) Render() {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	s.render()
	window := s.window
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.Rendered(window)
	}
}

// SetHighlight sets or clears the highlight marker and repaints only the
// plot region. This is the cheap imperative path for reflected highlight
// changes; no full render pass runs.
func (s *Surface) SetHighlight(r overlay.Range, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marker.Range, s.marker.Set = r, ok
	if s.loaded {
		s.drawPlot()
	}
}

// SetHighlightColor changes the marker color and repaints the plot.
func (s *Surface) SetHighlightColor(c core.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marker.Color = c
	if s.loaded {
		s.drawPlot()
	}
}

// Hover resolves the pointer position to a cell and notifies hover
// listeners. Repeated calls over the same cell (or repeatedly outside the
// plot) collapse into one notification.
func (s *Surface) Hover(x, y int) {
	s.mu.Lock()
	info := s.resolveHover(x, y)
	same := s.hasHover &&
		info.OK == s.lastHover.OK &&
		info.Position == s.lastHover.Position &&
		info.Category == s.lastHover.Category
	s.lastHover = info
	s.hasHover = true
	if same {
		s.mu.Unlock()
		return
	}
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range ls {
		l.HoverMoved(info)
	}
}

// resolveHover maps a screen position to the nearest cell. Caller holds
// the lock.
func (s *Surface) resolveHover(x, y int) HoverInfo {
	if !s.loaded {
		return HoverInfo{}
	}
	plot := s.plotRect()
	if !plot.Contains(core.ScreenPos{Row: y, Col: x}) {
		return HoverInfo{}
	}

	v := s.xs.Value(float64(x) + 0.5)
	pos := int(math.Round(v))
	if lo := int(math.Ceil(s.window.Start)); pos < lo {
		pos = lo
	}
	if hi := int(math.Floor(s.window.End)); pos > hi {
		pos = hi
	}

	cat, ok := s.ys.Value(float64(y) + 0.5)
	if !ok {
		return HoverInfo{Position: pos}
	}

	info := HoverInfo{Position: pos, Category: cat}
	if it, found := s.grid[gridKey{pos, cat}]; found {
		info.Item = it
		info.OK = true
	}
	return info
}

// ValueAt returns the domain value under screen column x, for
// zoom-about-pointer. ok is false before the first load or outside the
// plot.
func (s *Surface) ValueAt(x int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return 0, false
	}
	plot := s.plotRect()
	if x < plot.Left || x >= plot.Right {
		return 0, false
	}
	return s.xs.Value(float64(x) + 0.5), true
}

// Window returns the current displayed window.
func (s *Surface) Window() Span {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// Domain returns the full numeric domain of the loaded data.
func (s *Surface) Domain() Span {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domain
}

// PlotRect returns the plot area inside the margins.
func (s *Surface) PlotRect() core.ScreenRect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plotRect()
}

// Rect returns the surface's full canvas region.
func (s *Surface) Rect() core.ScreenRect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rect
}

// Loaded reports whether the surface has data.
func (s *Surface) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Highlight returns the current marker range and whether one is set.
func (s *Surface) Highlight() (overlay.Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marker.Range, s.marker.Set
}

// HighlightColor returns the marker color.
func (s *Surface) HighlightColor() core.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marker.Color
}

// Extent returns the fitted score extent.
func (s *Surface) Extent() (min, max float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cmap.Extent()
}

// Categories returns the category rows in display order.
func (s *Surface) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.categories...)
}

// Title returns the surface title.
func (s *Surface) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// AddListener registers a view-state listener.
func (s *Surface) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters a listener by identity.
func (s *Surface) RemoveListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// snapshotListeners copies the listener list so notifications run outside
// the lock. Caller holds the lock.
func (s *Surface) snapshotListeners() []Listener {
	return append([]Listener(nil), s.listeners...)
}

// rebuildScales derives both scales from the window, categories, and plot
// geometry. Caller holds the lock.
func (s *Surface) rebuildScales() {
	plot := s.plotRect()
	s.xs = scale.NewLinear(s.window.Start-0.5, s.window.End+0.5, float64(plot.Left), float64(plot.Right))
	s.ys = scale.NewBand(s.categories, float64(plot.Top), float64(plot.Bottom))
}

// plotRect derives the plot area inside the margins, clamped to at least
// one cell so degenerate geometry never panics. Caller holds the lock.
func (s *Surface) plotRect() core.ScreenRect {
	plot := s.rect.Inset(s.margins.Top, s.margins.Right, s.margins.Bottom, s.margins.Left)
	if plot.Right <= plot.Left {
		plot.Right = plot.Left + 1
	}
	if plot.Bottom <= plot.Top {
		plot.Bottom = plot.Top + 1
	}
	return plot
}
