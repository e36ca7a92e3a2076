package panel

import "sync/atomic"

// Gate decides whether an update cycle may skip the full declarative
// render. A cycle is suppressed when every changed attribute is view-state:
// the imperative zoom and highlight paths have already updated the screen,
// so repainting the whole panel would be wasted work.
//
// One gate is shared by all panels of a deck; its counters feed the status
// line.
type Gate struct {
	view map[Attr]struct{}

	suppressed atomic.Uint64
	full       atomic.Uint64
}

// GateStats is a snapshot of gate decisions.
type GateStats struct {
	// Suppressed counts cycles that took the imperative path only.
	Suppressed uint64

	// Full counts cycles that required a full render.
	Full uint64
}

// NewGate creates a gate. With no arguments the view set defaults to
// ViewAttrs.
func NewGate(viewAttrs ...Attr) *Gate {
	if len(viewAttrs) == 0 {
		viewAttrs = ViewAttrs()
	}
	view := make(map[Attr]struct{}, len(viewAttrs))
	for _, a := range viewAttrs {
		view[a] = struct{}{}
	}
	return &Gate{view: view}
}

// Suppress reports whether a cycle changing exactly the given attributes
// may skip the full render: true iff the set is non-empty and every member
// is view-state. The decision is recorded in the gate's counters.
func (g *Gate) Suppress(changed []Attr) bool {
	ok := len(changed) > 0
	for _, a := range changed {
		if _, view := g.view[a]; !view {
			ok = false
			break
		}
	}
	if ok {
		g.suppressed.Add(1)
	} else {
		g.full.Add(1)
	}
	return ok
}

// Stats returns a snapshot of the gate's decision counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Suppressed: g.suppressed.Load(),
		Full:       g.full.Load(),
	}
}
