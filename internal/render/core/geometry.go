package core

// ScreenPos is a position on the canvas, 0-indexed.
type ScreenPos struct {
	Row int
	Col int
}

// NewScreenPos creates a screen position.
func NewScreenPos(row, col int) ScreenPos {
	return ScreenPos{Row: row, Col: col}
}

// Add returns the position offset by the given delta.
func (p ScreenPos) Add(dRow, dCol int) ScreenPos {
	return ScreenPos{Row: p.Row + dRow, Col: p.Col + dCol}
}

// ScreenRect is a rectangular canvas region. Top/Left are inclusive,
// Bottom/Right exclusive.
type ScreenRect struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// NewScreenRect creates a rectangle from its edges.
func NewScreenRect(top, left, bottom, right int) ScreenRect {
	return ScreenRect{Top: top, Left: left, Bottom: bottom, Right: right}
}

// RectFromSize creates a rectangle from position and size.
func RectFromSize(top, left, height, width int) ScreenRect {
	return ScreenRect{Top: top, Left: left, Bottom: top + height, Right: left + width}
}

// Width returns the rectangle width, never negative.
func (r ScreenRect) Width() int {
	if r.Right <= r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the rectangle height, never negative.
func (r ScreenRect) Height() int {
	if r.Bottom <= r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// IsEmpty reports whether the rectangle has no area.
func (r ScreenRect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether pos lies within the rectangle.
func (r ScreenRect) Contains(pos ScreenPos) bool {
	return pos.Row >= r.Top && pos.Row < r.Bottom &&
		pos.Col >= r.Left && pos.Col < r.Right
}

// Intersects reports whether two rectangles overlap.
func (r ScreenRect) Intersects(other ScreenRect) bool {
	return r.Left < other.Right && r.Right > other.Left &&
		r.Top < other.Bottom && r.Bottom > other.Top
}

// Intersection returns the overlapping region, or the zero rect when the
// rectangles do not overlap.
func (r ScreenRect) Intersection(other ScreenRect) ScreenRect {
	if !r.Intersects(other) {
		return ScreenRect{}
	}
	return ScreenRect{
		Top:    max(r.Top, other.Top),
		Left:   max(r.Left, other.Left),
		Bottom: min(r.Bottom, other.Bottom),
		Right:  min(r.Right, other.Right),
	}
}

// Union returns the smallest rectangle containing both.
func (r ScreenRect) Union(other ScreenRect) ScreenRect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return ScreenRect{
		Top:    min(r.Top, other.Top),
		Left:   min(r.Left, other.Left),
		Bottom: max(r.Bottom, other.Bottom),
		Right:  max(r.Right, other.Right),
	}
}

// Inset returns the rectangle shrunk by the given edge amounts.
func (r ScreenRect) Inset(top, right, bottom, left int) ScreenRect {
	return ScreenRect{
		Top:    r.Top + top,
		Left:   r.Left + left,
		Bottom: r.Bottom - bottom,
		Right:  r.Right - right,
	}
}

// Clamp returns pos constrained to lie within the rectangle.
func (r ScreenRect) Clamp(pos ScreenPos) ScreenPos {
	if pos.Row < r.Top {
		pos.Row = r.Top
	}
	if pos.Row >= r.Bottom {
		pos.Row = r.Bottom - 1
	}
	if pos.Col < r.Left {
		pos.Col = r.Left
	}
	if pos.Col >= r.Right {
		pos.Col = r.Right - 1
	}
	return pos
}

// Equals reports whether two rectangles are identical.
func (r ScreenRect) Equals(other ScreenRect) bool {
	return r == other
}
