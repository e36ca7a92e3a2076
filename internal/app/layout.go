package app

import (
	"sort"

	"github.com/dshills/trackdeck/internal/render/core"
)

// statusRows is the number of rows reserved at the bottom of the canvas
// for the status and prompt line.
const statusRows = 1

// stackLayout splits the rows above the status line among the tracks,
// proportional to their configured heights. Fractional rows go to the
// tracks with the largest remainders, ties broken by track order. Rects
// can come back empty when the terminal is shorter than the track count.
func stackLayout(width, height int, weights []int) []core.ScreenRect {
	n := len(weights)
	if n == 0 {
		return nil
	}
	avail := height - statusRows
	if avail < 0 {
		avail = 0
	}

	total := 0
	norm := make([]int, n)
	for i, w := range weights {
		if w < 1 {
			w = 1
		}
		norm[i] = w
		total += w
	}

	rows := make([]int, n)
	type frac struct {
		idx int
		rem int
	}
	fracs := make([]frac, n)
	used := 0
	for i, w := range norm {
		rows[i] = avail * w / total
		fracs[i] = frac{idx: i, rem: avail*w - rows[i]*total}
		used += rows[i]
	}
	sort.SliceStable(fracs, func(a, b int) bool { return fracs[a].rem > fracs[b].rem })
	for i := 0; used < avail; i++ {
		rows[fracs[i%n].idx]++
		used++
	}

	rects := make([]core.ScreenRect, n)
	top := 0
	for i, h := range rows {
		rects[i] = core.RectFromSize(top, 0, h, width)
		top += h
	}
	return rects
}
