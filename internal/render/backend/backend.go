// Package backend abstracts the terminal behind a Canvas interface so the
// deck can draw to a real tcell screen in production and to an in-memory
// grid in tests and snapshot encoding.
package backend

import "github.com/dshills/trackdeck/internal/render/core"

// EventType identifies the kind of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventMouse
	EventResize
)

// Event is a normalized terminal event. Only the fields for the event's
// type are meaningful.
type Event struct {
	Type EventType

	// Key event fields
	Key  Key
	Rune rune
	Mod  ModMask

	// Mouse event fields
	MouseX, MouseY int
	Button         MouseButton

	// Resize event fields
	Width, Height int
}

// Key identifies a keyboard key. The set is deliberately small: the viewer
// binds single runes for most commands, so only navigation and control
// keys need distinct identities.
type Key int

const (
	KeyNone Key = iota
	KeyRune     // regular character, see the Rune field
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyCtrlC
	KeyCtrlL
)

// ModMask is a bit mask of modifier keys.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
)

// Has reports whether the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// MouseButton identifies a mouse button or wheel direction. MouseNone with
// an EventMouse means pointer motion, which drives hover tracking.
type MouseButton int

const (
	MouseNone MouseButton = iota
	MouseLeft
	MouseMiddle
	MouseRight
	WheelUp
	WheelDown
)

// Canvas is the drawing and input surface the deck renders onto.
// Implementations: Terminal for a real tcell screen, Memory for tests and
// offscreen snapshot rendering.
type Canvas interface {
	// Init prepares the canvas for use. Must be called before any other
	// method.
	Init() error

	// Shutdown releases resources and restores terminal state.
	Shutdown()

	// Size returns the current canvas dimensions in cells.
	Size() (width, height int)

	// SetCell writes one cell. Out-of-bounds positions are ignored.
	SetCell(x, y int, cell core.Cell)

	// GetCell reads one cell. Out-of-bounds positions return an empty cell.
	GetCell(x, y int) core.Cell

	// Fill writes the cell into every position of the rect.
	Fill(rect core.ScreenRect, cell core.Cell)

	// Clear resets every cell to empty.
	Clear()

	// Show flushes pending cell writes to the display.
	Show()

	// ShowCursor places and reveals the text cursor.
	ShowCursor(x, y int)

	// HideCursor hides the text cursor.
	HideCursor()

	// PollEvent blocks until the next event is available.
	PollEvent() Event

	// PostEvent injects a synthetic event into the queue.
	PostEvent(event Event)

	// HasTrueColor reports whether the canvas renders 24-bit color.
	HasTrueColor() bool

	// EnableMouse turns on mouse reporting, including motion events.
	EnableMouse()

	// DisableMouse turns off mouse reporting.
	DisableMouse()

	// Beep sounds the terminal bell.
	Beep()
}
