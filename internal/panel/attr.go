package panel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/render/overlay"
)

// Attr names one declarative panel attribute.
type Attr string

// The attribute vocabulary. The window pair and the highlight range travel
// between panels through the hub; highlight-color and data-gen stay
// panel-local under the default allowlist.
const (
	// AttrWindowStart is the visible window's first residue position.
	AttrWindowStart Attr = "window-start"

	// AttrWindowEnd is the visible window's last residue position.
	AttrWindowEnd Attr = "window-end"

	// AttrHighlight is the highlighted residue range as "s:e", empty for
	// none.
	AttrHighlight Attr = "highlight"

	// AttrHighlightColor is the highlight band color as "#rrggbb".
	AttrHighlightColor Attr = "highlight-color"

	// AttrDataGen counts data loads into the panel. It is the one
	// structural attribute: changing it forces a full render.
	AttrDataGen Attr = "data-gen"
)

// attrOrder fixes emission order within one update cycle: window-start
// always precedes window-end.
var attrOrder = []Attr{AttrWindowStart, AttrWindowEnd, AttrHighlight, AttrHighlightColor, AttrDataGen}

// KnownAttrs returns the attribute vocabulary in canonical order.
func KnownAttrs() []Attr {
	out := make([]Attr, len(attrOrder))
	copy(out, attrOrder)
	return out
}

// IsKnown reports whether a names a panel attribute.
func IsKnown(a Attr) bool {
	for _, k := range attrOrder {
		if k == a {
			return true
		}
	}
	return false
}

// ViewAttrs returns the view-state attributes, the set whose update cycles
// the gate may suppress.
func ViewAttrs() []Attr {
	return []Attr{AttrWindowStart, AttrWindowEnd, AttrHighlight, AttrHighlightColor}
}

// formatFloat renders a window bound in shortest round-trip form, so equal
// floats always compare equal as attribute strings.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// canonicalize validates value for attr and returns its canonical string
// form. A malformed highlight range canonicalizes to "" (no highlight)
// rather than erroring; the caller logs it.
func canonicalize(attr Attr, value string) (string, error) {
	switch attr {
	case AttrWindowStart, AttrWindowEnd:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %s=%q", ErrInvalidValue, attr, value)
		}
		return formatFloat(f), nil
	case AttrHighlight:
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		r, ok := overlay.ParseRange(value)
		if !ok {
			return "", nil
		}
		return overlay.FormatRange(r), nil
	case AttrHighlightColor:
		c, err := core.ColorFromHex(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s=%q", ErrInvalidValue, attr, value)
		}
		return c.Hex(), nil
	case AttrDataGen:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %s=%q", ErrInvalidValue, attr, value)
		}
		return strconv.Itoa(n), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAttr, attr)
	}
}
