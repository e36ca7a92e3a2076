package app

import (
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/trackdeck/internal/panel"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
)

// prompt is a one-line text input drawn over the status row. While
// active it captures all key events.
type prompt struct {
	active bool
	label  string
	buf    []rune
}

func (pr *prompt) open(label, prefill string) {
	pr.active = true
	pr.label = label
	pr.buf = []rune(prefill)
}

func (pr *prompt) close() {
	pr.active = false
	pr.label = ""
	pr.buf = nil
}

func (pr *prompt) value() string {
	return string(pr.buf)
}

// handleKey feeds one key into the prompt. done reports the prompt
// finished; accepted distinguishes Enter from Escape.
func (pr *prompt) handleKey(ev backend.Event) (done, accepted bool) {
	switch ev.Key {
	case backend.KeyEscape:
		return true, false
	case backend.KeyEnter:
		return true, true
	case backend.KeyBackspace:
		if len(pr.buf) > 0 {
			pr.buf = pr.buf[:len(pr.buf)-1]
		}
	case backend.KeyRune:
		pr.buf = append(pr.buf, ev.Rune)
	}
	return false, false
}

// draw paints the prompt over the given row and parks the cursor after
// the typed text.
func (pr *prompt) draw(canvas backend.Canvas, row, width int) {
	style := core.DefaultStyle()
	for x := 0; x < width; x++ {
		canvas.SetCell(x, row, core.NewCell(' ', style))
	}
	text := pr.label + pr.value()
	drawText(canvas, 0, row, width, text, style)
	col := uniseg.StringWidth(text)
	if col > width-1 {
		col = width - 1
	}
	canvas.ShowCursor(col, row)
}

// openHighlightPrompt starts highlight entry for the focused panel,
// prefilled with its current range so Enter without edits is a no-op.
func (a *Application) openHighlightPrompt() {
	p := a.focused()
	if p == nil {
		return
	}
	current, _ := p.Get(panel.AttrHighlight)
	a.prompt.open("highlight (start:end): ", current)
}

// handlePromptKey routes a key into the prompt and applies the result on
// accept. The panel canonicalizes malformed input to no highlight.
func (a *Application) handlePromptKey(ev backend.Event) {
	done, accepted := a.prompt.handleKey(ev)
	if !done {
		return
	}
	value := strings.TrimSpace(a.prompt.value())
	a.prompt.close()
	a.canvas.HideCursor()
	if !accepted {
		return
	}
	p := a.focused()
	if p == nil {
		return
	}
	if err := p.Set(panel.AttrHighlight, value); err != nil {
		a.logger.Warn("highlight: %v", err)
	}
}
