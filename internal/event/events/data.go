package events

import "github.com/dshills/trackdeck/internal/event/topic"

// Data event topics.
const (
	// TopicDataLoaded is published after a panel's item set is first loaded.
	TopicDataLoaded topic.Topic = "data.loaded"

	// TopicDataReloaded is published after a watched file change replaced a
	// panel's item set.
	TopicDataReloaded topic.Topic = "data.reloaded"

	// TopicDataError is published when loading or reloading a file fails;
	// the panel keeps its previous items.
	TopicDataError topic.Topic = "data.error"
)

// Loaded reports a completed data load into a panel.
type Loaded struct {
	// PanelID identifies the receiving panel.
	PanelID string

	// Path is the source file, empty for in-memory loads.
	Path string

	// Count is the number of items accepted.
	Count int

	// Skipped is the number of malformed elements dropped during parsing.
	Skipped int
}

// LoadError reports a failed load or reload.
type LoadError struct {
	// PanelID identifies the panel whose load failed.
	PanelID string

	// Path is the source file.
	Path string

	// Err is the failure description. Stored as a string so the payload
	// stays comparable in tests.
	Err string
}
