// Package overlay draws the highlight band over a rendered plot. The
// marker is recomputed from scratch on every draw, so a repaint of the
// base grid followed by one marker pass always yields the same frame for
// the same state.
package overlay

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive span of sequence positions. A valid range has
// Start <= End.
type Range struct {
	Start, End int
}

// Width returns the number of positions the range covers.
func (r Range) Width() int {
	return r.End - r.Start + 1
}

// Contains reports whether the position falls inside the range.
func (r Range) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.End
}

// Normalize returns the range with its bounds ordered.
func (r Range) Normalize() Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

// ParseRange parses a "start:end" highlight string. Surrounding whitespace
// is tolerated. Malformed input (wrong shape, non-integer bounds, reversed
// ranges) returns ok=false, which callers treat as no highlight.
func ParseRange(s string) (Range, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Range{}, false
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Range{}, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Range{}, false
	}
	if start > end {
		return Range{}, false
	}

	return Range{Start: start, End: end}, true
}

// FormatRange returns the canonical "start:end" form.
func FormatRange(r Range) string {
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}
