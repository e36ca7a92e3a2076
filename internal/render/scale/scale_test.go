package scale

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearPixel(t *testing.T) {
	// Padded window (10, 20) -> domain [9.5, 20.5] over 22 columns.
	s := NewLinear(9.5, 20.5, 0, 22)

	tests := []struct {
		value float64
		want  float64
	}{
		{9.5, 0},
		{20.5, 22},
		{15, 11}, // midpoint
		{10, 1},  // first full unit
	}

	for _, tt := range tests {
		if got := s.Pixel(tt.value); !almostEqual(got, tt.want) {
			t.Errorf("Pixel(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLinearRoundTrip(t *testing.T) {
	s := NewLinear(9.5, 20.5, 0, 80)

	for _, v := range []float64{9.5, 10, 13.25, 20.5} {
		px := s.Pixel(v)
		if got := s.Value(px); !almostEqual(got, v) {
			t.Errorf("Value(Pixel(%v)) = %v, want %v", v, got, v)
		}
	}
}

func TestLinearDegenerate(t *testing.T) {
	s := NewLinear(5, 5, 0, 100)

	// Every value maps to the middle of the range; no NaN, no Inf.
	for _, v := range []float64{0, 5, 100} {
		got := s.Pixel(v)
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Fatalf("Pixel(%v) = %v on degenerate domain", v, got)
		}
		if !almostEqual(got, 50) {
			t.Errorf("Pixel(%v) = %v, want 50", v, got)
		}
	}

	if got := s.Value(10); !almostEqual(got, 5) {
		t.Errorf("Value() on degenerate domain = %v, want 5", got)
	}
	if got := s.Distance(3); got != 0 {
		t.Errorf("Distance() on degenerate domain = %v, want 0", got)
	}
}

func TestLinearDistance(t *testing.T) {
	// 11 domain units over 22 pixels: 2 px per unit.
	s := NewLinear(9.5, 20.5, 0, 22)

	if got := s.Distance(1); !almostEqual(got, 2) {
		t.Errorf("Distance(1) = %v, want 2", got)
	}
	if got := s.Distance(5.5); !almostEqual(got, 11) {
		t.Errorf("Distance(5.5) = %v, want 11", got)
	}
}

func TestLinearClampValue(t *testing.T) {
	s := NewLinear(0, 10, 0, 100)

	if got := s.ClampValue(-5); got != 0 {
		t.Errorf("ClampValue(-5) = %v, want 0", got)
	}
	if got := s.ClampValue(15); got != 10 {
		t.Errorf("ClampValue(15) = %v, want 10", got)
	}
	if got := s.ClampValue(7); got != 7 {
		t.Errorf("ClampValue(7) = %v, want 7", got)
	}
}

func TestBandPixelValue(t *testing.T) {
	s := NewBand([]string{"kinase", "phosphatase", "ligase"}, 0, 9)

	if got := s.Bandwidth(); !almostEqual(got, 3) {
		t.Fatalf("Bandwidth() = %v, want 3", got)
	}

	top, ok := s.Pixel("phosphatase")
	if !ok || !almostEqual(top, 3) {
		t.Errorf("Pixel(phosphatase) = %v %v, want 3 true", top, ok)
	}
	if _, ok := s.Pixel("unknown"); ok {
		t.Error("Pixel(unknown) ok = true, want false")
	}

	tests := []struct {
		px   float64
		want string
	}{
		{0, "kinase"},
		{2.9, "kinase"},
		{3, "phosphatase"},
		{8.9, "ligase"},
		{-4, "kinase"}, // clamped
		{50, "ligase"}, // clamped
	}
	for _, tt := range tests {
		got, ok := s.Value(tt.px)
		if !ok || got != tt.want {
			t.Errorf("Value(%v) = %q %v, want %q true", tt.px, got, ok, tt.want)
		}
	}
}

func TestBandEmpty(t *testing.T) {
	s := NewBand(nil, 0, 10)

	if s.Bandwidth() != 0 {
		t.Errorf("Bandwidth() = %v, want 0", s.Bandwidth())
	}
	if _, ok := s.Pixel("any"); ok {
		t.Error("Pixel on empty band ok = true, want false")
	}
	if _, ok := s.Value(5); ok {
		t.Error("Value on empty band ok = true, want false")
	}
}

func TestBandCategoriesCopy(t *testing.T) {
	s := NewBand([]string{"a", "b"}, 0, 10)

	cats := s.Categories()
	cats[0] = "mutated"
	if got, _ := s.Value(0); got != "a" {
		t.Error("Categories() exposed internal slice")
	}
}
