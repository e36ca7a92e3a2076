package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rivo/uniseg"

	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/hub"
	"github.com/dshills/trackdeck/internal/render"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
)

// statusBar renders the bottom row: deck title, the shared window, the
// hover tooltip, and reflection counters. It observes the same events the
// hub reflects, at low priority so it always sees post-reflection state.
type statusBar struct {
	mu      sync.Mutex
	title   string
	window  render.Span
	hasWin  bool
	tooltip string

	deck *hub.Hub
	sub  *event.Subscriber
}

func newStatusBar(bus event.Bus, title string, deck *hub.Hub) (*statusBar, error) {
	sb := &statusBar{title: title, deck: deck}
	sb.sub = event.NewSubscriber(bus)

	if _, err := sb.sub.SubscribeFunc(events.TopicPanelZoom, sb.handleZoom,
		event.WithPriority(event.PriorityLow)); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", events.TopicPanelZoom, err)
	}
	if _, err := sb.sub.SubscribeFunc(events.TopicPanelHover, sb.handleHover,
		event.WithPriority(event.PriorityLow)); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", events.TopicPanelHover, err)
	}
	return sb, nil
}

func (sb *statusBar) Close() {
	sb.sub.Close()
}

func (sb *statusBar) handleZoom(_ context.Context, evt any) error {
	env, ok := evt.(event.Envelope)
	if !ok {
		return nil
	}
	z, ok := env.Payload.(events.Zoom)
	if !ok {
		return nil
	}
	sb.mu.Lock()
	sb.window = render.Span{Start: z.Start, End: z.End}
	sb.hasWin = true
	sb.mu.Unlock()
	return nil
}

func (sb *statusBar) handleHover(_ context.Context, evt any) error {
	env, ok := evt.(event.Envelope)
	if !ok {
		return nil
	}
	h, ok := env.Payload.(events.Hover)
	if !ok {
		return nil
	}
	sb.mu.Lock()
	if h.OK {
		sb.tooltip = h.Tooltip
	} else {
		sb.tooltip = ""
	}
	sb.mu.Unlock()
	return nil
}

// line composes the status text for the given width. The focused panel id
// comes from the caller since focus is event-loop state, not bus state.
func (sb *statusBar) line(focused string, width int) string {
	sb.mu.Lock()
	title, tooltip := sb.title, sb.tooltip
	window, hasWin := sb.window, sb.hasWin
	sb.mu.Unlock()

	left := title
	if focused != "" {
		left += " [" + focused + "]"
	}
	if hasWin {
		left += fmt.Sprintf("  %.6g:%.6g", window.Start, window.End)
	}
	if tooltip != "" {
		left += "  " + tooltip
	}

	right := ""
	if sb.deck != nil {
		right = fmt.Sprintf("refl %d", sb.deck.Stats().Applied)
	}

	return composeLine(left, right, width)
}

// draw paints the status line in reverse video across the full row.
func (sb *statusBar) draw(canvas backend.Canvas, row, width int, focused string) {
	style := core.DefaultStyle().Reverse()
	canvas.Fill(core.RectFromSize(row, 0, 1, width), core.Cell{Rune: ' ', Style: style})
	drawText(canvas, 0, row, width, sb.line(focused, width), style)
}

// drawText writes s starting at (x, y), clipped to max cells. Wide
// graphemes advance two columns; the continuation cell keeps the
// background written before the glyph.
func drawText(canvas backend.Canvas, x, y, max int, s string, style core.Style) {
	col := x
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		w := gr.Width()
		if col+w > x+max {
			break
		}
		runes := gr.Runes()
		canvas.SetCell(col, y, core.Cell{Rune: runes[0], Style: style})
		col += w
	}
}

// composeLine lays out left-aligned and right-aligned text in width cells,
// truncating the left part on overflow.
func composeLine(left, right string, width int) string {
	rw := uniseg.StringWidth(right)
	maxLeft := width - rw
	if rw > 0 {
		maxLeft--
	}
	if maxLeft < 0 {
		maxLeft = 0
	}
	left = truncate(left, maxLeft)

	pad := width - uniseg.StringWidth(left) - rw
	if pad < 0 {
		pad = 0
	}
	return left + strings.Repeat(" ", pad) + right
}

// truncate cuts s to at most max display cells, appending an ellipsis when
// anything was dropped.
func truncate(s string, max int) string {
	if uniseg.StringWidth(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	var b strings.Builder
	w := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		gw := gr.Width()
		if w+gw > max-1 {
			break
		}
		b.WriteString(gr.Str())
		w += gw
	}
	return b.String() + "…"
}
