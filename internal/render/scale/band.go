package scale

// Band maps an ordered list of categories onto equal vertical bands of a
// pixel range; the y axis of a track is a band scale over its category rows.
type Band struct {
	categories []string
	index      map[string]int
	rangeMin   float64
	rangeMax   float64
}

// NewBand creates a band scale over the given categories in order.
func NewBand(categories []string, rangeMin, rangeMax float64) Band {
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}
	return Band{
		categories: categories,
		index:      index,
		rangeMin:   rangeMin,
		rangeMax:   rangeMax,
	}
}

// Count returns the number of categories.
func (s Band) Count() int {
	return len(s.categories)
}

// Categories returns the categories in band order.
func (s Band) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Bandwidth returns the pixel height of one band, 0 when there are no
// categories.
func (s Band) Bandwidth() float64 {
	if len(s.categories) == 0 {
		return 0
	}
	return (s.rangeMax - s.rangeMin) / float64(len(s.categories))
}

// Pixel returns the top edge of the category's band. Unknown categories
// return ok false.
func (s Band) Pixel(category string) (float64, bool) {
	i, ok := s.index[category]
	if !ok {
		return 0, false
	}
	return s.rangeMin + float64(i)*s.Bandwidth(), true
}

// Value returns the category whose band contains the pixel position,
// clamping out-of-range positions to the nearest band. Returns ok false
// only when the scale has no categories.
func (s Band) Value(px float64) (string, bool) {
	n := len(s.categories)
	if n == 0 {
		return "", false
	}

	bw := s.Bandwidth()
	if bw <= 0 {
		return s.categories[0], true
	}

	i := int((px - s.rangeMin) / bw)
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return s.categories[i], true
}
