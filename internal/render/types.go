// Package render draws one track's heatmap onto a canvas region and owns
// the view state behind it: the numeric window, the category rows, the
// color extent, and the highlight marker. All coordinate math runs through
// the scale package's half-unit convention, where position p occupies the
// unit [p-0.5, p+0.5) so a window (s, e) maps the padded domain
// [s-0.5, e+0.5] onto the plot.
package render

import (
	"github.com/dshills/trackdeck/internal/data"
)

// Span is an inclusive window in position units.
type Span struct {
	Start, End float64
}

// Width returns the span width in units.
func (s Span) Width() float64 {
	return s.End - s.Start
}

// Equals reports exact equality. Zoom deliberately compares floats
// exactly: a no-op is "same bounds derived from the same inputs", not
// "close enough".
func (s Span) Equals(other Span) bool {
	return s.Start == other.Start && s.End == other.End
}

// Margins reserve canvas rows and columns around the plot for the title,
// category labels, and the axis ruler.
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// DefaultMargins leaves a title row, a label gutter wide enough for most
// category names, and two ruler rows.
func DefaultMargins() Margins {
	return Margins{Top: 1, Right: 1, Bottom: 2, Left: 14}
}

// HoverInfo describes what sits under the pointer. OK is true only when
// the pointer rests on a cell with an item; otherwise Position and
// Category may still name the nearest cell, and a pointer outside the
// plot leaves them zero.
type HoverInfo struct {
	Position int
	Category string
	Item     data.Item
	OK       bool
}

// Listener observes view-state changes on a surface. The surface never
// publishes to the event bus itself; the owning panel registers a
// listener and decides what to emit.
type Listener interface {
	// ZoomChanged fires after the window changed and the surface redrew.
	ZoomChanged(window Span)

	// HoverMoved fires when the pointer moves to a different cell, enters
	// the plot, or leaves it.
	HoverMoved(info HoverInfo)

	// Rendered fires after a full render pass, carrying the effective
	// window so consumers can re-assert clamped values.
	Rendered(window Span)
}
