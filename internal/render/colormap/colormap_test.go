package colormap

import (
	"testing"

	"github.com/dshills/trackdeck/internal/render/core"
)

func TestFitExtent(t *testing.T) {
	s := Default()
	s.Fit([]float64{0.3, -1.2, 4.5, 2.0})

	min, max := s.Extent()
	if min != -1.2 || max != 4.5 {
		t.Errorf("extent = (%v, %v), want (-1.2, 4.5)", min, max)
	}
}

func TestFitEmpty(t *testing.T) {
	s := Default()
	s.Fit(nil)

	min, max := s.Extent()
	if min != 0 || max != 0 {
		t.Errorf("extent after empty fit = (%v, %v), want (0, 0)", min, max)
	}
	// Degenerate extent must still produce a defined color.
	_ = s.Color(123)
}

func TestSetExtentSwapsInverted(t *testing.T) {
	s := Default()
	s.SetExtent(10, -10)

	min, max := s.Extent()
	if min != -10 || max != 10 {
		t.Errorf("extent = (%v, %v), want (-10, 10)", min, max)
	}
}

func TestColorAnchors(t *testing.T) {
	lo := core.Color{R: 255, G: 255, B: 255}
	hi := core.Color{R: 0x2a, G: 0x4d, B: 0x69}
	s := New(lo, hi)
	s.SetExtent(0, 1)

	if got := s.Color(0); !got.Equals(lo) {
		t.Errorf("Color(0) = %v, want low anchor %v", got, lo)
	}
	if got := s.Color(1); !got.Equals(hi) {
		t.Errorf("Color(1) = %v, want high anchor %v", got, hi)
	}
}

func TestColorClampsOutsideExtent(t *testing.T) {
	s := Default()
	s.SetExtent(0, 10)

	if got, want := s.Color(-5), s.Color(0); !got.Equals(want) {
		t.Errorf("Color(-5) = %v, want clamp to %v", got, want)
	}
	if got, want := s.Color(50), s.Color(10); !got.Equals(want) {
		t.Errorf("Color(50) = %v, want clamp to %v", got, want)
	}
}

func TestColorMonotonicRamp(t *testing.T) {
	// White-to-dark gradient: luminance should fall as score rises.
	s := Default()
	s.SetExtent(0, 1)

	prev := s.Color(0).Luminance()
	for _, score := range []float64{0.25, 0.5, 0.75, 1} {
		lum := s.Color(score).Luminance()
		if lum >= prev {
			t.Errorf("luminance at %v = %v, want < %v", score, lum, prev)
		}
		prev = lum
	}
}

func TestDegenerateExtentMidpoint(t *testing.T) {
	s := Default()
	s.SetExtent(3, 3)

	mid := s.Color(3)
	for _, score := range []float64{-100, 0, 3, 100} {
		if got := s.Color(score); !got.Equals(mid) {
			t.Errorf("Color(%v) = %v, want midpoint %v", score, got, mid)
		}
	}
	if mid.Equals(s.Low()) || mid.Equals(s.High()) {
		t.Errorf("midpoint %v should sit strictly between the anchors", mid)
	}
}

func TestRefitChangesMapping(t *testing.T) {
	// The same score maps to a different color once the extent is refit
	// against a wider data set.
	s := Default()
	s.Fit([]float64{0, 1, 2})
	before := s.Color(1)

	s.Fit([]float64{0, 1, 2, 100})
	after := s.Color(1)

	if before.Equals(after) {
		t.Errorf("Color(1) unchanged after refit: %v", before)
	}
}
