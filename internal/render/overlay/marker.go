package overlay

import (
	"math"

	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/render/scale"
)

// blendDepth is how far cell backgrounds move toward the highlight color.
// Deep enough to read as a band, shallow enough to keep the heatmap
// colors distinguishable underneath.
const blendDepth = 0.45

// Marker is the highlight state drawn over a plot. The zero value draws
// nothing. It carries no reference to the surface; Draw is a pure function
// of its arguments.
type Marker struct {
	Range Range
	Set   bool
	Color core.Color
}

// Draw paints the highlight band onto the plot region. Cell glyphs are
// preserved; only backgrounds blend toward the marker color, giving a
// translucent band over the full plot height. Positions follow the
// half-unit convention: position p occupies the pixel span
// [Pixel(p-0.5), Pixel(p+0.5)), so an inclusive range [a, b] is
// Distance(b-a+1) pixels wide and a single position still shows as a
// full unit, never less than one cell.
func (m Marker) Draw(canvas backend.Canvas, plot core.ScreenRect, xs scale.Linear) {
	if !m.Set || plot.IsEmpty() {
		return
	}

	startPx := xs.Pixel(float64(m.Range.Start) - 0.5)
	endPx := startPx + xs.Distance(float64(m.Range.Width()))

	startCol := int(math.Floor(startPx))
	endCol := int(math.Ceil(endPx))
	if endCol <= startCol {
		endCol = startCol + 1
	}

	// Clip to the plot; a range fully outside the window draws nothing.
	if startCol < plot.Left {
		startCol = plot.Left
	}
	if endCol > plot.Right {
		endCol = plot.Right
	}
	if startCol >= endCol {
		return
	}

	for y := plot.Top; y < plot.Bottom; y++ {
		for x := startCol; x < endCol; x++ {
			cell := canvas.GetCell(x, y)
			bg := cell.Style.Background
			if bg.IsDefault() {
				// Unpainted cells blend from black so the band stays
				// visible over them.
				bg = core.ColorBlack
			}
			cell.Style.Background = bg.Blend(m.Color, blendDepth)
			canvas.SetCell(x, y, cell)
		}
	}
}
