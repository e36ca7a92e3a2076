package app

import (
	"context"
	"time"

	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/panel"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/render/overlay"
)

// eventLoop multiplexes terminal input, watcher activity, and shutdown
// requests. Every deck mutation happens on this goroutine; other
// goroutines reach the deck only through the event bus.
func (a *Application) eventLoop() error {
	termEvents := make(chan backend.Event, 16)
	go a.pumpEvents(termEvents)

	var watchEvents <-chan string
	var watchErrors <-chan error
	if a.watcher != nil {
		watchEvents = a.watcher.Events()
		watchErrors = a.watcher.Errors()
	}

	for {
		select {
		case <-a.done:
			return nil
		case ev := <-termEvents:
			a.metrics.RecordEvent()
			start := time.Now()
			if err := a.handleEvent(ev); err != nil {
				return err
			}
			a.refresh()
			a.metrics.RecordFrame(time.Since(start))
		case path := <-watchEvents:
			a.handleReload(path)
			a.refresh()
		case err := <-watchErrors:
			a.logger.Warn("watcher: %v", err)
		}
	}
}

// pumpEvents forwards blocking PollEvent calls onto a channel the loop
// can select over. After canvas shutdown PollEvent returns zero-value
// events; the done case lets the goroutine drain out instead of filling
// the channel with them.
func (a *Application) pumpEvents(out chan<- backend.Event) {
	for {
		ev := a.canvas.PollEvent()
		select {
		case out <- ev:
		case <-a.done:
			return
		}
	}
}

func (a *Application) handleEvent(ev backend.Event) error {
	switch ev.Type {
	case backend.EventKey:
		return a.handleKey(ev)
	case backend.EventMouse:
		a.handleMouse(ev)
	case backend.EventResize:
		a.relayout(ev.Width, ev.Height)
	}
	return nil
}

func (a *Application) handleKey(ev backend.Event) error {
	if a.prompt.active {
		a.handlePromptKey(ev)
		return nil
	}

	switch ev.Key {
	case backend.KeyCtrlC:
		return ErrQuit
	case backend.KeyCtrlL:
		a.canvas.Clear()
		a.renderAllPanels()
		return nil
	case backend.KeyLeft:
		a.panFocused(-1)
		return nil
	case backend.KeyRight:
		a.panFocused(1)
		return nil
	case backend.KeyUp:
		a.moveFocus(-1)
		return nil
	case backend.KeyDown, backend.KeyTab:
		a.moveFocus(1)
		return nil
	case backend.KeyRune:
	default:
		return nil
	}

	switch ev.Rune {
	case 'q':
		return ErrQuit
	case 'h':
		a.panFocused(-1)
	case 'l':
		a.panFocused(1)
	case 'k':
		a.moveFocus(-1)
	case 'j':
		a.moveFocus(1)
	case '+', '=':
		a.zoomFocused(true)
	case '-', '_':
		a.zoomFocused(false)
	case '0':
		if p := a.focused(); p != nil {
			if err := p.ResetZoom(); err != nil {
				a.logger.Warn("reset zoom: %v", err)
			}
		}
	case 'g':
		a.openHighlightPrompt()
	case 'x':
		if p := a.focused(); p != nil {
			if err := p.Set(panel.AttrHighlight, ""); err != nil {
				a.logger.Warn("clear highlight: %v", err)
			}
		}
	case 'p':
		_ = a.pub.Publish(context.Background(), events.TopicDeckSnapshot, events.Snapshot{})
	}
	return nil
}

// handleMouse routes pointer events to the panel under the cursor. The
// wheel and left click move focus there; plain motion only updates hover.
func (a *Application) handleMouse(ev backend.Event) {
	idx, ok := a.panelAt(ev.MouseY)
	if !ok {
		return
	}
	p := a.panels[idx]

	switch ev.Button {
	case backend.WheelUp:
		a.focus = idx
		if err := p.ZoomAbout(ev.MouseX, true); err != nil {
			a.logger.Warn("zoom: %v", err)
		}
	case backend.WheelDown:
		a.focus = idx
		if err := p.ZoomAbout(ev.MouseX, false); err != nil {
			a.logger.Warn("zoom: %v", err)
		}
	case backend.MouseLeft:
		a.focus = idx
		if pos, ok := p.PositionAt(ev.MouseX); ok {
			r := overlay.Range{Start: pos, End: pos}
			if err := p.Set(panel.AttrHighlight, overlay.FormatRange(r)); err != nil {
				a.logger.Warn("highlight: %v", err)
			}
		}
	case backend.MouseNone:
		p.HandleHover(ev.MouseX, ev.MouseY)
	}
}

// panFocused shifts the focused window by a tenth of its width.
func (a *Application) panFocused(dir int) {
	p := a.focused()
	if p == nil {
		return
	}
	win, ok := p.Window()
	if !ok {
		return
	}
	delta := float64(dir) * win.Width() / 10
	if err := p.Pan(delta); err != nil {
		a.logger.Warn("pan: %v", err)
	}
}

func (a *Application) zoomFocused(in bool) {
	p := a.focused()
	if p == nil {
		return
	}
	if err := p.ZoomBy(in); err != nil {
		a.logger.Warn("zoom: %v", err)
	}
}

// moveFocus cycles panel focus with wraparound.
func (a *Application) moveFocus(dir int) {
	n := len(a.panels)
	if n == 0 {
		return
	}
	a.focus = (a.focus + dir + n) % n
}

// relayout restacks the deck after a terminal resize. Panels that end up
// with no rows render nothing until the terminal grows back.
func (a *Application) relayout(w, h int) {
	rects := stackLayout(w, h, trackWeights(a.cfg.Tracks))
	for i, p := range a.panels {
		p.Resize(rects[i])
	}
	a.canvas.Clear()
	a.renderAllPanels()
	_ = a.pub.Publish(context.Background(), events.TopicDeckResized, events.Resized{Width: w, Height: h})
}

// handleReload reloads the panel whose data file changed on disk. A
// rewrite that fails to parse keeps the previous items on screen.
func (a *Application) handleReload(path string) {
	idx, ok := a.byPath[path]
	if !ok {
		a.logger.Debug("reload for unknown path %s", path)
		return
	}
	p := a.panels[idx]
	tr := a.cfg.Tracks[idx]
	if err := a.loadTrack(p, tr.Data, true); err != nil {
		a.logger.Warn("reload %s: %v", path, err)
		_ = a.pub.Publish(context.Background(), events.TopicDataError, events.LoadError{
			PanelID: p.ID(),
			Path:    path,
			Err:     err.Error(),
		})
	}
}

// refresh composes the frame. Panel surfaces repaint themselves on every
// state change, so only the chrome and the bottom line remain.
func (a *Application) refresh() {
	a.drawChrome()
	w, h := a.canvas.Size()
	if a.prompt.active {
		a.prompt.draw(a.canvas, h-1, w)
	} else {
		a.canvas.HideCursor()
		a.status.draw(a.canvas, h-1, w, a.focusedID())
	}
	a.canvas.Show()
}

// drawChrome marks the focused panel. Panels draw their own titles; the
// marker cell in the left margin is the only chrome the deck adds.
func (a *Application) drawChrome() {
	for i, p := range a.panels {
		rect := p.Rect()
		if rect.IsEmpty() {
			continue
		}
		r := ' '
		if i == a.focus {
			r = '▶'
		}
		a.canvas.SetCell(rect.Left, rect.Top, core.NewCell(r, core.DefaultStyle().Bold()))
	}
}

func (a *Application) renderAllPanels() {
	for _, p := range a.panels {
		p.Render()
	}
}

// panelAt maps a screen row to the panel stacked there.
func (a *Application) panelAt(y int) (int, bool) {
	for i, p := range a.panels {
		rect := p.Rect()
		if rect.IsEmpty() {
			continue
		}
		if y >= rect.Top && y < rect.Bottom {
			return i, true
		}
	}
	return -1, false
}
