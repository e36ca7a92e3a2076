// Package format renders track items as tooltip text.
package format

import (
	"fmt"
	"strings"

	"github.com/dshills/trackdeck/internal/data"
)

// MaxAuxFields caps how many auxiliary fields the default formatter appends.
const MaxAuxFields = 3

// Formatter renders a single item as a one-line tooltip.
type Formatter interface {
	Format(item data.Item) (string, error)
}

// Default renders "pos 42 · kinase · score 0.87" plus up to MaxAuxFields
// auxiliary fields in document order.
type Default struct{}

// Format implements Formatter.
func (Default) Format(item data.Item) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "pos %d · %s · score %g", item.Position, item.Category, item.Score)
	for i, aux := range item.AuxFields() {
		if i == MaxAuxFields {
			break
		}
		fmt.Fprintf(&b, " · %s %s", aux.Name, aux.Value.String())
	}
	return b.String(), nil
}
