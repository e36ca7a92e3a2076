// Package app wires the deck together and runs the terminal event loop.
// It owns component lifecycles: config, logging, the event bus, the
// reflection hub, panels, file watching, and snapshot export.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/trackdeck/internal/config"
	"github.com/dshills/trackdeck/internal/data"
	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/format"
	"github.com/dshills/trackdeck/internal/hub"
	"github.com/dshills/trackdeck/internal/logging"
	"github.com/dshills/trackdeck/internal/panel"
	"github.com/dshills/trackdeck/internal/render"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
	"github.com/dshills/trackdeck/internal/snapshot"
)

// snapshotCols is the offscreen canvas width for headless snapshot runs,
// where no terminal provides a size.
const snapshotCols = 120

// Application is the central coordinator for the deck. It manages
// component lifecycles, the track stack, and the main event loop.
type Application struct {
	cfg     config.Config
	logger  *logging.Logger
	logFile *os.File

	bus  event.Bus
	pub  *event.Publisher
	deck *hub.Hub

	canvas backend.Canvas
	panels []*panel.Panel
	byPath map[string]int
	focus  int

	watcher   *data.Watcher
	formatter format.Formatter
	exporter  *snapshot.Exporter
	status    *statusBar
	metrics   *Metrics
	prompt    prompt

	running  atomic.Bool
	done     chan struct{}
	quitOnce sync.Once
	downOnce sync.Once

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is an explicit configuration file. Empty searches the
	// usual locations.
	ConfigPath string

	// DataFiles are track data files given on the command line. When set
	// they build an ad-hoc deck and the config's track list is ignored.
	DataFiles []string

	// Debug forces debug-level logging.
	Debug bool

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// NoWatch disables data file watching.
	NoWatch bool

	// Snapshot renders the deck once to the given PNG path and exits
	// without opening a terminal.
	Snapshot string
}

// New creates an application with the given options.
func New(opts Options) (*Application, error) {
	a := &Application{
		opts:   opts,
		byPath: make(map[string]int),
		done:   make(chan struct{}),
	}
	if err := a.bootstrap(); err != nil {
		a.downOnce.Do(a.teardown)
		return nil, err
	}
	return a, nil
}

// bootstrap initializes the deck-independent components in dependency
// order. Panels need the canvas size, so they wait for Run.
func (a *Application) bootstrap() error {
	// 1. Config
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if len(a.opts.DataFiles) > 0 {
		cfg.Tracks = adHocTracks(a.opts.DataFiles)
	}
	if len(cfg.Tracks) == 0 {
		return &InitError{Component: "config", Err: ErrNoTracks}
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	a.cfg = cfg

	// 2. Logging
	if err := a.setupLogging(); err != nil {
		return &InitError{Component: "logging", Err: err}
	}

	// 3. Event bus
	a.bus = event.NewBus()
	if err := a.bus.Start(); err != nil {
		return &InitError{Component: "event bus", Err: err}
	}
	a.pub = event.NewPublisher(a.bus, "app")

	// 4. Reflection hub
	attrs, err := config.ParseReflect(a.cfg.Deck.Reflect)
	if err != nil {
		return &InitError{Component: "hub", Err: err}
	}
	a.deck, err = hub.New(a.bus, hub.WithReflected(attrs...), hub.WithLogger(a.logger))
	if err != nil {
		return &InitError{Component: "hub", Err: err}
	}

	// 5. Tooltip formatter
	a.formatter = a.buildFormatter()

	// 6. Data watcher
	if a.cfg.Deck.Watch && !a.opts.NoWatch && a.opts.Snapshot == "" {
		w, err := data.NewWatcher(0)
		if err != nil {
			a.logger.Warn("file watching disabled: %v", err)
		} else {
			a.watcher = w
		}
	}

	// 7. Status line and metrics
	a.status, err = newStatusBar(a.bus, a.cfg.Deck.Title, a.deck)
	if err != nil {
		return &InitError{Component: "status", Err: err}
	}
	a.metrics = NewMetrics()

	return nil
}

// setupLogging builds the application logger from config and flags. The
// terminal belongs to the deck while it runs, so without a log file the
// output is dropped rather than scribbled over the UI.
func (a *Application) setupLogging() error {
	level := a.cfg.Logging.Level
	if a.opts.LogLevel != "" {
		level = a.opts.LogLevel
	}
	cfg := logging.Config{Level: logging.ParseLevel(level), Prefix: "trackdeck"}
	if a.opts.Debug {
		cfg.Level = logging.LevelDebug
	}

	switch {
	case a.cfg.Logging.File != "":
		f, err := os.OpenFile(a.cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		a.logFile = f
		cfg.Output = f
	case a.opts.Snapshot != "":
		cfg.Output = os.Stderr
	default:
		cfg.Output = io.Discard
	}

	a.logger = logging.New(cfg)
	return nil
}

// buildFormatter compiles the configured tooltip script, falling back to
// the default formatter when the script is missing or broken.
func (a *Application) buildFormatter() format.Formatter {
	script := a.cfg.Tooltip.Script
	if script == "" {
		return format.Default{}
	}
	f, err := format.LoadLua(script, format.WithWarnf(a.logger.Warn))
	if err != nil {
		a.logger.Warn("tooltip formatter: %v", err)
		return format.Default{}
	}
	return f
}

// SetCanvas sets the canvas to run on. Must be called before Run; when
// unset, Run opens a real terminal.
func (a *Application) SetCanvas(c backend.Canvas) error {
	if a.running.Load() {
		return ErrAlreadyRunning
	}
	a.canvas = c
	return nil
}

// Run builds the deck on the canvas and blocks in the event loop until
// quit or Shutdown. A normal quit returns ErrQuit.
func (a *Application) Run() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)
	defer a.downOnce.Do(a.teardown)
	defer a.quitOnce.Do(func() { close(a.done) })

	if a.opts.Snapshot != "" {
		return a.runSnapshot()
	}

	if a.canvas == nil {
		term, err := backend.NewTerminal()
		if err != nil {
			return &InitError{Component: "terminal", Err: err}
		}
		a.canvas = term
	}
	if err := a.canvas.Init(); err != nil {
		return &InitError{Component: "canvas", Err: err}
	}
	defer a.canvas.Shutdown()
	a.canvas.EnableMouse()
	a.canvas.HideCursor()

	if err := a.buildDeck(); err != nil {
		return err
	}

	exp, err := snapshot.New(a.bus, a.canvas,
		snapshot.WithDir(a.cfg.Deck.SnapshotDir),
		snapshot.WithLogger(a.logger))
	if err != nil {
		return &InitError{Component: "snapshot", Err: err}
	}
	a.exporter = exp

	a.renderAllPanels()
	a.refresh()
	a.logger.Info("deck up: %d tracks", len(a.panels))

	return a.eventLoop()
}

// runSnapshot renders the deck once to an offscreen canvas and writes the
// PNG. No terminal, no event loop.
func (a *Application) runSnapshot() error {
	weights := trackWeights(a.cfg.Tracks)
	height := statusRows
	for _, w := range weights {
		height += w
	}
	mem := backend.NewMemory(snapshotCols, height)
	if err := mem.Init(); err != nil {
		return &InitError{Component: "canvas", Err: err}
	}
	a.canvas = mem

	if err := a.buildDeck(); err != nil {
		return err
	}
	a.renderAllPanels()
	a.drawChrome()
	a.status.draw(mem, height-1, snapshotCols, a.focusedID())

	if err := snapshot.Write(mem, a.opts.Snapshot); err != nil {
		return err
	}
	a.logger.Info("snapshot written to %s", a.opts.Snapshot)
	return nil
}

// buildDeck lays the tracks out on the canvas, creates and loads their
// panels, registers them with the hub, and applies configured initial
// windows. Windows apply after every panel is registered so they reflect
// across the whole deck.
func (a *Application) buildDeck() error {
	w, h := a.canvas.Size()
	rects := stackLayout(w, h, trackWeights(a.cfg.Tracks))

	for i, tr := range a.cfg.Tracks {
		p, err := a.buildPanel(tr, rects[i])
		if err != nil {
			return err
		}
		a.panels = append(a.panels, p)
		if abs, err := filepath.Abs(tr.Data); err == nil {
			a.byPath[abs] = i
		}
	}

	for _, p := range a.panels {
		if err := a.deck.Register(p); err != nil {
			return &InitError{Component: "hub", Err: err}
		}
	}

	for i, tr := range a.cfg.Tracks {
		a.applyInitialWindow(a.panels[i], tr)
	}

	if a.watcher != nil {
		for _, tr := range a.cfg.Tracks {
			if err := a.watcher.Watch(tr.Data); err != nil {
				a.logger.Warn("watch %s: %v", tr.Data, err)
			}
		}
	}
	return nil
}

// buildPanel creates one track's panel and loads its data file. A data
// file that cannot be loaded at startup is fatal; later failures during
// watch reloads are not.
func (a *Application) buildPanel(tr config.Track, rect core.ScreenRect) (*panel.Panel, error) {
	opts := []panel.Option{
		panel.WithSize(rect),
		panel.WithEmitter(a.bus),
		panel.WithLogger(a.logger),
		panel.WithFormatter(a.formatter),
		panel.WithZoomStep(a.cfg.Deck.ZoomStep),
	}
	if tr.ColorLow != "" && tr.ColorHigh != "" {
		lo, _ := core.ColorFromHex(tr.ColorLow)
		hi, _ := core.ColorFromHex(tr.ColorHigh)
		opts = append(opts, panel.WithColors(lo, hi))
	}
	if tr.HighlightColor != "" {
		c, _ := core.ColorFromHex(tr.HighlightColor)
		opts = append(opts, panel.WithHighlightColor(c))
	}

	p := panel.New(tr.ID, a.canvas, opts...)
	if err := a.loadTrack(p, tr.Data, false); err != nil {
		return nil, &InitError{Component: "track " + tr.ID, Err: err}
	}
	return p, nil
}

// loadTrack loads or reloads one panel's data file. Reloads publish the
// reload topic with the source path and skip count.
func (a *Application) loadTrack(p *panel.Panel, path string, reload bool) error {
	items, skipped, err := data.Load(path)
	if err != nil {
		return err
	}
	lo, hi, ok := data.Domain(items)
	if !ok {
		lo, hi = 1, 1
	}
	domain := render.Span{Start: float64(lo), End: float64(hi)}
	if err := p.LoadData(domain, data.Categories(items), items); err != nil {
		return err
	}
	if skipped > 0 {
		a.logger.Warn("%s: skipped %d malformed items", path, skipped)
	}
	if reload {
		a.metrics.RecordReload()
		_ = a.pub.Publish(context.Background(), events.TopicDataReloaded, events.Loaded{
			PanelID: p.ID(),
			Path:    path,
			Count:   len(items),
			Skipped: skipped,
		})
	}
	return nil
}

func (a *Application) applyInitialWindow(p *panel.Panel, tr config.Track) {
	switch {
	case tr.WindowStart != nil && tr.WindowEnd != nil:
		if err := p.SetWindow(*tr.WindowStart, *tr.WindowEnd); err != nil {
			a.logger.Warn("track %s window: %v", tr.ID, err)
		}
	case tr.WindowStart != nil:
		if err := p.Set(panel.AttrWindowStart, formatFloat(*tr.WindowStart)); err != nil {
			a.logger.Warn("track %s window: %v", tr.ID, err)
		}
	case tr.WindowEnd != nil:
		if err := p.Set(panel.AttrWindowEnd, formatFloat(*tr.WindowEnd)); err != nil {
			a.logger.Warn("track %s window: %v", tr.ID, err)
		}
	}
}

// Shutdown requests the event loop to exit and, once Run has returned,
// releases resources. Safe to call more than once and from any goroutine.
func (a *Application) Shutdown() {
	a.quitOnce.Do(func() { close(a.done) })
	if !a.running.Load() {
		a.downOnce.Do(a.teardown)
	}
}

// teardown releases components in reverse dependency order.
func (a *Application) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.exporter != nil {
		a.exporter.Close()
	}
	if a.status != nil {
		a.status.Close()
	}
	if a.deck != nil {
		a.deck.Close()
	}
	if a.bus != nil {
		_ = a.bus.Stop(ctx)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// IsRunning reports whether the event loop is active.
func (a *Application) IsRunning() bool {
	return a.running.Load()
}

// EventBus returns the application's event bus.
func (a *Application) EventBus() event.Bus {
	return a.bus
}

// Hub returns the reflection hub.
func (a *Application) Hub() *hub.Hub {
	return a.deck
}

// Panels returns the deck's panels in track order.
func (a *Application) Panels() []*panel.Panel {
	return append([]*panel.Panel(nil), a.panels...)
}

// Config returns the loaded configuration.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Metrics returns the event-loop metrics.
func (a *Application) Metrics() *Metrics {
	return a.metrics
}

func (a *Application) focused() *panel.Panel {
	if a.focus >= 0 && a.focus < len(a.panels) {
		return a.panels[a.focus]
	}
	return nil
}

func (a *Application) focusedID() string {
	if p := a.focused(); p != nil {
		return p.ID()
	}
	return ""
}

// adHocTracks builds a track list from bare file arguments, deriving ids
// from file names. Duplicate stems get a numeric suffix.
func adHocTracks(files []string) []config.Track {
	seen := make(map[string]int)
	tracks := make([]config.Track, 0, len(files))
	for _, f := range files {
		id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if id == "" {
			id = "track"
		}
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s-%d", id, n+1)
		} else {
			seen[id] = 1
		}
		tracks = append(tracks, config.Track{
			ID:     id,
			Data:   f,
			Height: config.DefaultTrackHeight,
		})
	}
	return tracks
}

func trackWeights(tracks []config.Track) []int {
	weights := make([]int, len(tracks))
	for i, tr := range tracks {
		weights[i] = tr.Height
	}
	return weights
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
