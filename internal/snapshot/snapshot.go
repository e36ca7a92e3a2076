// Package snapshot rasterizes the deck's cell grid into a PNG so a view
// state can be shared outside the terminal. Every cell becomes a block of
// its background color with the cell rune drawn on top in a fixed 7x13
// bitmap font, which keeps the output deterministic for a given grid.
package snapshot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/logging"
	"github.com/dshills/trackdeck/internal/render/core"
)

// Pixel size of one cell, fixed by the basicfont.Face7x13 metrics.
const (
	CellWidth  = 7
	CellHeight = 13

	baseline = 11
)

// Terminal default colors are rendered as light gray on near-black,
// matching a dark terminal theme.
var (
	defaultForeground = color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
	defaultBackground = color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
)

// Source is the cell grid to rasterize. Both canvas backends satisfy it,
// though only the memory canvas supports readback of what was drawn.
type Source interface {
	Size() (int, int)
	GetCell(x, y int) core.Cell
}

// Encode rasterizes the grid into an RGBA image of
// width*CellWidth x height*CellHeight pixels.
func Encode(src Source) *image.RGBA {
	w, h := src.Size()
	img := image.NewRGBA(image.Rect(0, 0, w*CellWidth, h*CellHeight))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cell := src.GetCell(x, y)
			fg, bg := cellColors(cell.Style)

			rect := image.Rect(x*CellWidth, y*CellHeight, (x+1)*CellWidth, (y+1)*CellHeight)
			draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)

			if cell.Rune != 0 && cell.Rune != ' ' {
				drawGlyph(img, cell, fg, x, y)
			}
			if cell.Style.Attributes.Has(core.AttrUnderline) {
				uy := y*CellHeight + baseline + 1
				for ux := rect.Min.X; ux < rect.Max.X; ux++ {
					img.SetRGBA(ux, uy, fg)
				}
			}
		}
	}
	return img
}

// Write encodes the grid and writes it to path, creating the parent
// directory if needed.
func Write(src Source, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot file: %w", err)
	}
	if err := png.Encode(f, Encode(src)); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// Exporter consumes deck.snapshot events and writes PNGs. Delivery is
// async so encoding never blocks the event loop or a key handler.
type Exporter struct {
	logger *logging.Logger
	src    Source
	dir    string
	sub    *event.Subscriber
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithDir sets the directory for requests that carry no explicit path.
func WithDir(dir string) Option {
	return func(e *Exporter) {
		if dir != "" {
			e.dir = dir
		}
	}
}

// WithLogger sets the exporter's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an exporter reading from src and subscribes it to the
// snapshot topic on bus.
func New(bus event.Bus, src Source, opts ...Option) (*Exporter, error) {
	e := &Exporter{
		logger: logging.NullLogger,
		src:    src,
		dir:    ".",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("snapshot")

	e.sub = event.NewSubscriber(bus)
	_, err := e.sub.SubscribeFunc(
		events.TopicDeckSnapshot,
		e.handleSnapshot,
		event.WithDeliveryMode(event.DeliveryAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", events.TopicDeckSnapshot, err)
	}
	return e, nil
}

// Close cancels the exporter's subscription.
func (e *Exporter) Close() {
	e.sub.Close()
}

func (e *Exporter) handleSnapshot(_ context.Context, evt any) error {
	env, ok := evt.(event.Envelope)
	if !ok {
		return nil
	}
	req, ok := env.Payload.(events.Snapshot)
	if !ok {
		return nil
	}

	path := req.Path
	if path == "" {
		name := fmt.Sprintf("trackdeck-%s.png", time.Now().Format("20060102-150405"))
		path = filepath.Join(e.dir, name)
	}
	if err := Write(e.src, path); err != nil {
		e.logger.Error("snapshot to %s: %v", path, err)
		return err
	}
	e.logger.Info("snapshot written to %s", path)
	return nil
}

// cellColors resolves a style to concrete pixel colors, applying reverse
// video and dimming. Italic has no bitmap face and is ignored.
func cellColors(st core.Style) (fg, bg color.RGBA) {
	fg = toRGBA(st.Foreground, defaultForeground)
	bg = toRGBA(st.Background, defaultBackground)
	if st.Attributes.Has(core.AttrReverse) {
		fg, bg = bg, fg
	}
	if st.Attributes.Has(core.AttrDim) {
		fg = color.RGBA{R: fg.R / 2, G: fg.G / 2, B: fg.B / 2, A: 0xff}
	}
	return fg, bg
}

func toRGBA(c core.Color, def color.RGBA) color.RGBA {
	if c.IsDefault() {
		return def
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// drawGlyph draws the cell rune at its grid position. Bold is rendered as
// a double strike one pixel right.
func drawGlyph(dst *image.RGBA, cell core.Cell, fg color.RGBA, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x*CellWidth, y*CellHeight+baseline),
	}
	s := string(cell.Rune)
	d.DrawString(s)
	if cell.Style.Attributes.Has(core.AttrBold) {
		d.Dot = fixed.P(x*CellWidth+1, y*CellHeight+baseline)
		d.DrawString(s)
	}
}
