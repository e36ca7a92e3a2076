package events

import "github.com/dshills/trackdeck/internal/event/topic"

// Panel event topics.
const (
	// TopicPanelAttrChanged is published when a panel attribute is mutated
	// locally (never for hub-reflected applies).
	TopicPanelAttrChanged topic.Topic = "panel.attr.changed"

	// TopicPanelZoom is published after a panel's visible window changes.
	TopicPanelZoom topic.Topic = "panel.zoom"

	// TopicPanelHover is published when the pointer settles on a datum or
	// leaves the plot area.
	TopicPanelHover topic.Topic = "panel.hover"

	// TopicPanelRendered is published after a panel completes a full draw.
	TopicPanelRendered topic.Topic = "panel.rendered"

	// TopicPanelDetached is published when a panel is removed from the hub.
	TopicPanelDetached topic.Topic = "panel.detached"
)

// AttrChanged is the synchronization event: one changed attribute on one
// panel. The hub consumes it and reflects the value onto sibling panels.
type AttrChanged struct {
	// PanelID identifies the panel whose attribute changed.
	PanelID string

	// Attr is the attribute name, e.g. "window-start".
	Attr string

	// Value is the attribute's new string form.
	Value string

	// Old is the previous value, empty if the attribute was unset.
	Old string
}

// Zoom reports a panel's visible window after a zoom or pan.
type Zoom struct {
	// PanelID identifies the panel.
	PanelID string

	// Start and End bound the visible window in residue units.
	Start float64
	End   float64
}

// Hover reports the datum under the pointer. OK is false when the pointer
// left the plot area or rests on an empty cell.
type Hover struct {
	// PanelID identifies the panel.
	PanelID string

	// Position is the residue position under the pointer.
	Position int

	// Category is the row category under the pointer.
	Category string

	// Tooltip is the formatted tooltip text for the datum.
	Tooltip string

	// OK reports whether a datum was actually hit.
	OK bool
}

// Rendered reports a completed full draw of one panel.
type Rendered struct {
	// PanelID identifies the panel.
	PanelID string

	// Start and End bound the window that was drawn.
	Start float64
	End   float64
}

// Detached reports a panel leaving the deck.
type Detached struct {
	// PanelID identifies the panel.
	PanelID string
}
