// Package scale provides the coordinate transforms that map sequence
// positions and category rows onto canvas columns and rows.
//
// Scales are plain values, cheap to rebuild. A surface recomputes its scales
// from the current window and plot rectangle on every change, so the same
// window and extent always produce the same pixel output regardless of the
// resize or zoom path that led there.
package scale

// Linear is an affine map from a numeric domain onto a pixel range.
//
// The x axis of a track uses a half-unit padded domain: for a visible window
// (start, end) in residue units the domain is [start-0.5, end+0.5], so the
// datum at integral position p owns the full pixel span of [p-0.5, p+0.5).
type Linear struct {
	domainMin, domainMax float64
	rangeMin, rangeMax   float64
}

// NewLinear creates a linear scale mapping [domainMin, domainMax] onto
// [rangeMin, rangeMax].
func NewLinear(domainMin, domainMax, rangeMin, rangeMax float64) Linear {
	return Linear{
		domainMin: domainMin,
		domainMax: domainMax,
		rangeMin:  rangeMin,
		rangeMax:  rangeMax,
	}
}

// Domain returns the domain bounds.
func (s Linear) Domain() (min, max float64) {
	return s.domainMin, s.domainMax
}

// Range returns the range bounds.
func (s Linear) Range() (min, max float64) {
	return s.rangeMin, s.rangeMax
}

// Pixel maps a domain value to a pixel position. A degenerate domain maps
// every value to the middle of the range; there is never a division by zero.
func (s Linear) Pixel(v float64) float64 {
	span := s.domainMax - s.domainMin
	if span == 0 {
		return s.rangeMin + (s.rangeMax-s.rangeMin)/2
	}
	t := (v - s.domainMin) / span
	return s.rangeMin + t*(s.rangeMax-s.rangeMin)
}

// Value maps a pixel position back to a domain value. A degenerate range or
// domain returns the domain minimum.
func (s Linear) Value(px float64) float64 {
	span := s.rangeMax - s.rangeMin
	if span == 0 || s.domainMax == s.domainMin {
		return s.domainMin
	}
	t := (px - s.rangeMin) / span
	return s.domainMin + t*(s.domainMax-s.domainMin)
}

// Distance converts a span of domain units into pixels.
func (s Linear) Distance(units float64) float64 {
	span := s.domainMax - s.domainMin
	if span == 0 {
		return 0
	}
	return units * (s.rangeMax - s.rangeMin) / span
}

// ClampValue constrains v to the domain.
func (s Linear) ClampValue(v float64) float64 {
	if v < s.domainMin {
		return s.domainMin
	}
	if v > s.domainMax {
		return s.domainMax
	}
	return v
}
