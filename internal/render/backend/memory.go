package backend

import (
	"strings"
	"sync"

	"github.com/dshills/trackdeck/internal/render/core"
)

// Memory implements Canvas on an in-memory cell grid. Tests draw into it
// and assert on cells or rows; the snapshot encoder reads it to rasterize
// a frame without a terminal.
type Memory struct {
	width, height int
	cells         [][]core.Cell
	cursorX       int
	cursorY       int
	cursorVisible bool
	events        chan Event
	quit          chan struct{}
	shutOnce      sync.Once
	shows         int
}

// NewMemory creates a memory canvas with the given dimensions.
func NewMemory(width, height int) *Memory {
	return &Memory{
		width:  width,
		height: height,
		events: make(chan Event, 100),
		quit:   make(chan struct{}),
	}
}

func (m *Memory) Init() error {
	m.cells = newGrid(m.width, m.height)
	return nil
}

func (m *Memory) Shutdown() {
	m.shutOnce.Do(func() { close(m.quit) })
}

func (m *Memory) Size() (int, int) {
	return m.width, m.height
}

func (m *Memory) SetCell(x, y int, cell core.Cell) {
	if x >= 0 && x < m.width && y >= 0 && y < m.height {
		m.cells[y][x] = cell
	}
}

func (m *Memory) GetCell(x, y int) core.Cell {
	if x >= 0 && x < m.width && y >= 0 && y < m.height {
		return m.cells[y][x]
	}
	return core.EmptyCell()
}

func (m *Memory) Fill(rect core.ScreenRect, cell core.Cell) {
	for y := rect.Top; y < rect.Bottom && y < m.height; y++ {
		for x := rect.Left; x < rect.Right && x < m.width; x++ {
			if x >= 0 && y >= 0 {
				m.cells[y][x] = cell
			}
		}
	}
}

func (m *Memory) Clear() {
	empty := core.EmptyCell()
	for y := range m.cells {
		for x := range m.cells[y] {
			m.cells[y][x] = empty
		}
	}
}

func (m *Memory) Show() {
	m.shows++
}

func (m *Memory) ShowCursor(x, y int) {
	m.cursorX = x
	m.cursorY = y
	m.cursorVisible = true
}

func (m *Memory) HideCursor() {
	m.cursorVisible = false
}

// PollEvent blocks until an event is posted. After Shutdown it returns
// zero-value events immediately, matching the terminal backend.
func (m *Memory) PollEvent() Event {
	select {
	case ev := <-m.events:
		return ev
	case <-m.quit:
		return Event{}
	}
}

func (m *Memory) PostEvent(event Event) {
	select {
	case m.events <- event:
	default:
		// dropped when the queue is full; tests never get near the cap
	}
}

func (m *Memory) HasTrueColor() bool { return true }
func (m *Memory) EnableMouse()       {}
func (m *Memory) DisableMouse()      {}
func (m *Memory) Beep()              {}

// Resize changes the grid dimensions and discards content. Callers that
// simulate a live resize should also post an EventResize.
func (m *Memory) Resize(width, height int) {
	m.width = width
	m.height = height
	m.cells = newGrid(width, height)
}

// CursorPosition reports the cursor state for assertions.
func (m *Memory) CursorPosition() (x, y int, visible bool) {
	return m.cursorX, m.cursorY, m.cursorVisible
}

// Shows reports how many times Show was called.
func (m *Memory) Shows() int {
	return m.shows
}

// Row returns the runes of row y as a string, with empty cells rendered as
// spaces. Handy for asserting on drawn text.
func (m *Memory) Row(y int) string {
	if y < 0 || y >= m.height {
		return ""
	}
	var sb strings.Builder
	for x := 0; x < m.width; x++ {
		r := m.cells[y][x].Rune
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// String dumps the whole grid, one row per line. Debug aid for failing
// tests.
func (m *Memory) String() string {
	rows := make([]string, m.height)
	for y := 0; y < m.height; y++ {
		rows[y] = m.Row(y)
	}
	return strings.Join(rows, "\n")
}

func newGrid(width, height int) [][]core.Cell {
	cells := make([][]core.Cell, height)
	for i := range cells {
		cells[i] = make([]core.Cell, width)
		for j := range cells[i] {
			cells[i][j] = core.EmptyCell()
		}
	}
	return cells
}
