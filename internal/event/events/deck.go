package events

import "github.com/dshills/trackdeck/internal/event/topic"

// Deck event topics.
const (
	// TopicDeckSnapshot requests a PNG export of the current deck. Consumed
	// asynchronously so encoding never blocks the event loop.
	TopicDeckSnapshot topic.Topic = "deck.snapshot"

	// TopicDeckResized is published after the terminal was resized and the
	// deck relaid out.
	TopicDeckResized topic.Topic = "deck.resized"
)

// Snapshot requests a deck export.
type Snapshot struct {
	// Path is the destination file. Empty means a timestamped name in the
	// configured snapshot directory.
	Path string
}

// Resized reports the new deck geometry.
type Resized struct {
	// Width and Height are the new terminal dimensions in cells.
	Width  int
	Height int
}
