package render

import (
	"math"
	"strconv"

	"github.com/dshills/trackdeck/internal/data"
	"github.com/dshills/trackdeck/internal/render/core"
)

// plotBackground is the base color of unoccupied plot cells. A concrete
// color rather than the terminal default so the highlight marker blends
// predictably over empty regions.
var plotBackground = core.Color{R: 16, G: 16, B: 16}

// render runs the full draw pass. Caller holds the lock.
func (s *Surface) render() {
	s.canvas.Fill(s.rect, core.EmptyCell())
	s.drawTitle()
	s.drawCategoryLabels()
	s.drawRuler()
	s.drawPlot()
}

// drawTitle writes the title into the top margin row.
func (s *Surface) drawTitle() {
	if s.margins.Top < 1 || s.title == "" {
		return
	}
	plot := s.plotRect()
	style := core.DefaultStyle().Bold()
	col := plot.Left
	for _, r := range s.title {
		if col >= plot.Right {
			break
		}
		s.canvas.SetCell(col, s.rect.Top, core.NewCell(r, style))
		col++
	}
}

// drawCategoryLabels writes each category name right-aligned in the left
// margin, vertically centered on its band.
func (s *Surface) drawCategoryLabels() {
	if s.margins.Left < 2 {
		return
	}
	plot := s.plotRect()
	gutterRight := plot.Left - 2 // one column of padding before the plot
	maxWidth := gutterRight - s.rect.Left + 1
	if maxWidth < 1 {
		return
	}

	for _, cat := range s.categories {
		top, ok := s.ys.Pixel(cat)
		if !ok {
			continue
		}
		y0 := int(math.Floor(top))
		y1 := int(math.Floor(top + s.ys.Bandwidth()))
		if y1 <= y0 {
			y1 = y0 + 1
		}
		row := (y0 + y1 - 1) / 2
		if row < plot.Top || row >= plot.Bottom {
			continue
		}

		label := []rune(truncateLabel(cat, maxWidth))
		col := gutterRight - len(label) + 1
		for i, r := range label {
			s.canvas.SetCell(col+i, row, core.NewCell(r, core.DefaultStyle()))
		}
	}
}

// drawRuler draws the axis line with tick marks in the first bottom margin
// row and tick labels in the second, when the margins leave room.
func (s *Surface) drawRuler() {
	if s.margins.Bottom < 1 {
		return
	}
	plot := s.plotRect()
	base := plot.Bottom
	lineStyle := core.DefaultStyle().Dim()

	for x := plot.Left; x < plot.Right; x++ {
		s.canvas.SetCell(x, base, core.NewCell('─', lineStyle))
	}

	step := tickStep(s.window.Width(), plot.Width())
	labelRow := base + 1
	lastLabelEnd := plot.Left - 2

	first := int(math.Ceil(s.window.Start/float64(step))) * step
	for p := first; float64(p) <= s.window.End; p += step {
		col := int(math.Round(s.xs.Pixel(float64(p))))
		if col < plot.Left || col >= plot.Right {
			continue
		}
		s.canvas.SetCell(col, base, core.NewCell('┴', lineStyle))

		if s.margins.Bottom < 2 {
			continue
		}
		label := strconv.Itoa(p)
		startCol := col - len(label)/2
		if startCol < plot.Left {
			startCol = plot.Left
		}
		if startCol <= lastLabelEnd+1 || startCol+len(label) > plot.Right {
			continue
		}
		for i, r := range label {
			s.canvas.SetCell(startCol+i, labelRow, core.NewCell(r, core.DefaultStyle()))
		}
		lastLabelEnd = startCol + len(label) - 1
	}
}

// drawPlot repaints the plot region: base fill, one colored block per
// visible item, then the highlight marker on top. This is the complete
// restore used by the imperative highlight path, so stale marker cells
// never survive.
func (s *Surface) drawPlot() {
	plot := s.plotRect()
	s.canvas.Fill(plot, core.NewCell(' ', core.DefaultStyle().WithBackground(plotBackground)))

	for _, it := range s.items {
		block, ok := s.itemBlock(it)
		if !ok {
			continue
		}
		cell := core.NewCell(' ', core.DefaultStyle().WithBackground(s.cmap.Color(it.Score)))
		s.canvas.Fill(block, cell)
	}

	s.marker.Draw(s.canvas, plot, s.xs)
}

// itemBlock computes the screen cells an item covers, clipped to the
// plot. Blocks tile without gaps: position p spans
// [floor(Pixel(p-0.5)), floor(Pixel(p+0.5))), and a position narrower
// than a cell still gets one column.
func (s *Surface) itemBlock(it data.Item) (core.ScreenRect, bool) {
	plot := s.plotRect()

	x0 := int(math.Floor(s.xs.Pixel(float64(it.Position) - 0.5)))
	x1 := int(math.Floor(s.xs.Pixel(float64(it.Position) + 0.5)))
	if x1 <= x0 {
		x1 = x0 + 1
	}

	top, ok := s.ys.Pixel(it.Category)
	if !ok {
		return core.ScreenRect{}, false
	}
	y0 := int(math.Floor(top))
	y1 := int(math.Floor(top + s.ys.Bandwidth()))
	if y1 <= y0 {
		y1 = y0 + 1
	}

	block := core.ScreenRect{Top: y0, Left: x0, Bottom: y1, Right: x1}.Intersection(plot)
	if block.IsEmpty() {
		return core.ScreenRect{}, false
	}
	return block, true
}

// tickStep picks a 1/2/5×10^k step leaving roughly eight columns between
// ruler ticks.
func tickStep(windowWidth float64, plotWidth int) int {
	if plotWidth < 1 {
		plotWidth = 1
	}
	target := windowWidth * 8 / float64(plotWidth)

	mag := 1
	for {
		for _, m := range []int{1, 2, 5} {
			if float64(m*mag) >= target {
				return m * mag
			}
		}
		mag *= 10
	}
}

// truncateLabel cuts a label to max runes, marking the cut with an
// ellipsis.
func truncateLabel(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
