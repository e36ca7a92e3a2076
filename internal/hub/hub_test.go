package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/trackdeck/internal/data"
	"github.com/dshills/trackdeck/internal/event"
	"github.com/dshills/trackdeck/internal/event/events"
	"github.com/dshills/trackdeck/internal/panel"
	"github.com/dshills/trackdeck/internal/render"
	"github.com/dshills/trackdeck/internal/render/backend"
	"github.com/dshills/trackdeck/internal/render/core"
)

func newTestBus(t *testing.T) event.Bus {
	t.Helper()
	bus := event.NewBus()
	if err := bus.Start(); err != nil {
		t.Fatalf("bus start: %v", err)
	}
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func newTestPanel(t *testing.T, bus event.Bus, id string) *panel.Panel {
	t.Helper()
	canvas := backend.NewMemory(40, 12)
	if err := canvas.Init(); err != nil {
		t.Fatalf("canvas init: %v", err)
	}
	p := panel.New(id, canvas,
		panel.WithSize(core.RectFromSize(0, 0, 12, 40)),
		panel.WithEmitter(bus),
	)
	items := []data.Item{
		{Position: 1, Category: "kinase", Score: 0.1},
		{Position: 13, Category: "kinase", Score: 0.6},
		{Position: 25, Category: "kinase", Score: 1.0},
	}
	if err := p.LoadData(render.Span{Start: 1, End: 25}, []string{"kinase"}, items); err != nil {
		t.Fatalf("LoadData %s: %v", id, err)
	}
	return p
}

// newTestDeck wires a three-panel deck: bus, hub, panels registered in
// egfr, kras, tp53 order.
func newTestDeck(t *testing.T, opts ...Option) (event.Bus, *Hub, []*panel.Panel) {
	t.Helper()
	bus := newTestBus(t)
	h, err := New(bus, opts...)
	if err != nil {
		t.Fatalf("hub: %v", err)
	}
	panels := []*panel.Panel{
		newTestPanel(t, bus, "egfr"),
		newTestPanel(t, bus, "kras"),
		newTestPanel(t, bus, "tp53"),
	}
	for _, p := range panels {
		if err := h.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.ID(), err)
		}
	}
	return bus, h, panels
}

type envRecorder struct {
	mu   sync.Mutex
	envs []event.Envelope
}

func (r *envRecorder) handle(_ context.Context, evt any) error {
	env, ok := evt.(event.Envelope)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *envRecorder) list() []event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Envelope(nil), r.envs...)
}

func wantWindow(t *testing.T, p *panel.Panel, start, end float64) {
	t.Helper()
	w, ok := p.Window()
	if !ok {
		t.Fatalf("%s: no window", p.ID())
	}
	if w.Start != start || w.End != end {
		t.Errorf("%s window = {%g %g}, want {%g %g}", p.ID(), w.Start, w.End, start, end)
	}
}

// One local window change reaches every sibling, produces exactly one
// event per changed attribute on the bus, and never echoes.
func TestReflectWindowAcrossDeck(t *testing.T) {
	bus, h, panels := newTestDeck(t)
	rec := &envRecorder{}
	if _, err := bus.SubscribeFunc(events.TopicPanelAttrChanged, rec.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}

	for _, p := range panels {
		wantWindow(t, p, 10, 20)
	}

	envs := rec.list()
	if len(envs) != 2 {
		t.Fatalf("bus carried %d attr events, want 2 (no echoes)", len(envs))
	}
	for i, env := range envs {
		if env.Metadata.Source != "egfr" {
			t.Errorf("event[%d] source = %q, want origin egfr", i, env.Metadata.Source)
		}
	}

	stats := h.Stats()
	if stats.EventsSeen != 2 {
		t.Errorf("EventsSeen = %d, want 2", stats.EventsSeen)
	}
	if stats.Applied != 4 {
		t.Errorf("Applied = %d, want 4 (2 attrs x 2 siblings)", stats.Applied)
	}
	if stats.SkippedOrigin != 2 {
		t.Errorf("SkippedOrigin = %d, want 2", stats.SkippedOrigin)
	}
	if stats.SkippedAttr != 0 {
		t.Errorf("SkippedAttr = %d, want 0", stats.SkippedAttr)
	}
}

func TestReflectHighlight(t *testing.T) {
	_, _, panels := newTestDeck(t)

	if err := panels[1].Set(panel.AttrHighlight, "3:9"); err != nil {
		t.Fatalf("set highlight: %v", err)
	}
	for _, p := range panels {
		if v, _ := p.Get(panel.AttrHighlight); v != "3:9" {
			t.Errorf("%s highlight = %q, want %q", p.ID(), v, "3:9")
		}
	}
}

func TestHighlightColorStaysLocal(t *testing.T) {
	_, h, panels := newTestDeck(t)

	if err := panels[0].Set(panel.AttrHighlightColor, "#ff0000"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	if v, _ := panels[0].Get(panel.AttrHighlightColor); v != "#FF0000" {
		t.Errorf("origin color = %q, want %q", v, "#FF0000")
	}
	for _, p := range panels[1:] {
		if v, _ := p.Get(panel.AttrHighlightColor); v != "#FFEB3B" {
			t.Errorf("%s color = %q, want untouched default", p.ID(), v)
		}
	}

	stats := h.Stats()
	if stats.SkippedAttr != 1 {
		t.Errorf("SkippedAttr = %d, want 1", stats.SkippedAttr)
	}
	if stats.Applied != 0 {
		t.Errorf("Applied = %d, want 0", stats.Applied)
	}
}

func TestCustomAllowlist(t *testing.T) {
	_, h, panels := newTestDeck(t, WithReflected(panel.AttrHighlight, panel.AttrHighlightColor))

	if !h.Reflected(panel.AttrHighlightColor) || h.Reflected(panel.AttrWindowStart) {
		t.Fatal("allowlist not applied")
	}

	if err := panels[0].Set(panel.AttrHighlightColor, "#ff0000"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	if v, _ := panels[2].Get(panel.AttrHighlightColor); v != "#FF0000" {
		t.Errorf("color did not reflect under custom allowlist: %q", v)
	}

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	wantWindow(t, panels[1], 1, 25)
}

// Reflection follows registration order. The zoom notifications betray the
// order panels moved in: the origin first (during its own cycle), then
// each sibling per reflected attribute.
func TestReflectionOrderFollowsRegistration(t *testing.T) {
	bus, _, panels := newTestDeck(t)
	rec := &envRecorder{}
	if _, err := bus.SubscribeFunc(events.TopicPanelZoom, rec.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}

	var got []string
	for _, env := range rec.list() {
		got = append(got, env.Metadata.Source)
	}
	want := []string{"egfr", "kras", "tp53", "kras", "tp53"}
	if len(got) != len(want) {
		t.Fatalf("zoom sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("zoom sources = %v, want %v", got, want)
		}
	}
}

func TestUnregisterDetaches(t *testing.T) {
	_, h, panels := newTestDeck(t)

	if err := h.Unregister(panels[1]); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if panels[1].State() != panel.StateDetached {
		t.Errorf("state = %v, want %v", panels[1].State(), panel.StateDetached)
	}
	if got := len(h.Panels()); got != 2 {
		t.Errorf("hub holds %d panels, want 2", got)
	}

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	wantWindow(t, panels[2], 10, 20)
	wantWindow(t, panels[1], 1, 25) // detached panel keeps its old window

	if err := h.Unregister(panels[1]); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second unregister err = %v, want ErrNotRegistered", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	_, h, panels := newTestDeck(t)
	if err := h.Register(panels[0]); !errors.Is(err, ErrDuplicatePanel) {
		t.Errorf("err = %v, want ErrDuplicatePanel", err)
	}
}

// A panel detached outside the hub is skipped with a warning, not an
// error; the rest of the deck still converges.
func TestReflectSkipsDetachedPanel(t *testing.T) {
	_, h, panels := newTestDeck(t)
	panels[1].Detach()

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	wantWindow(t, panels[2], 10, 20)
	wantWindow(t, panels[1], 1, 25)

	stats := h.Stats()
	if stats.Applied != 2 {
		t.Errorf("Applied = %d, want 2 (tp53 only)", stats.Applied)
	}
}

func TestCloseStopsReflection(t *testing.T) {
	_, h, panels := newTestDeck(t)
	h.Close()

	if err := panels[0].SetWindow(10, 20); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	wantWindow(t, panels[0], 10, 20)
	wantWindow(t, panels[1], 1, 25)
	if got := h.Stats().EventsSeen; got != 0 {
		t.Errorf("EventsSeen = %d after Close, want 0", got)
	}
}

func TestPanelLookup(t *testing.T) {
	_, h, _ := newTestDeck(t)
	p, ok := h.Panel("kras")
	if !ok || p.ID() != "kras" {
		t.Errorf("Panel(kras) = %v, %v", p, ok)
	}
	if _, ok := h.Panel("myc"); ok {
		t.Error("Panel(myc) ok for unknown ID")
	}
}
