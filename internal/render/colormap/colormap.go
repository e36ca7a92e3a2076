// Package colormap maps item scores onto a two-color gradient for heatmap
// cells. Interpolation happens in Lab space, which keeps the perceived
// brightness ramp even across the score range.
package colormap

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"

	"github.com/dshills/trackdeck/internal/render/core"
)

// Scale maps scores in [min, max] onto the gradient between a low and a
// high anchor color. The extent is refit whenever a panel's item set is
// replaced, so the same score can legitimately map to different colors
// before and after a data reload.
type Scale struct {
	min, max float64
	lo, hi   colorful.Color
}

// New creates a scale with the given anchor colors and a zero extent.
// Call Fit or SetExtent before use.
func New(lo, hi core.Color) *Scale {
	return &Scale{
		lo: toColorful(lo),
		hi: toColorful(hi),
	}
}

// Default returns the standard heatmap gradient, white into deep steel
// blue.
func Default() *Scale {
	return New(core.ColorWhite, core.Color{R: 0x2a, G: 0x4d, B: 0x69})
}

// Fit derives the extent from the given scores. An empty slice leaves a
// degenerate (0, 0) extent, which still maps every score to a defined
// color.
func (s *Scale) Fit(scores []float64) {
	if len(scores) == 0 {
		s.min, s.max = 0, 0
		return
	}
	s.min = floats.Min(scores)
	s.max = floats.Max(scores)
}

// SetExtent pins the extent explicitly, swapping inverted bounds.
func (s *Scale) SetExtent(min, max float64) {
	if min > max {
		min, max = max, min
	}
	s.min, s.max = min, max
}

// Extent returns the current score extent.
func (s *Scale) Extent() (min, max float64) {
	return s.min, s.max
}

// Color maps a score onto the gradient. Scores outside the extent clamp to
// the anchors; a degenerate extent maps every score to the gradient
// midpoint so there is never a division by zero.
func (s *Scale) Color(score float64) core.Color {
	var t float64
	switch {
	case s.max == s.min:
		t = 0.5
	case score <= s.min:
		t = 0
	case score >= s.max:
		t = 1
	default:
		t = (score - s.min) / (s.max - s.min)
	}

	blended := s.lo.BlendLab(s.hi, t).Clamped()
	return fromColorful(blended)
}

// Low returns the low anchor as a render color.
func (s *Scale) Low() core.Color {
	return fromColorful(s.lo)
}

// High returns the high anchor as a render color.
func (s *Scale) High() core.Color {
	return fromColorful(s.hi)
}

func toColorful(c core.Color) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func fromColorful(c colorful.Color) core.Color {
	r, g, b := c.RGB255()
	return core.Color{R: r, G: g, B: b}
}
