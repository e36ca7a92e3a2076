package topic

import (
	"sort"
	"testing"
)

func matchSorted(m *Matcher, tp Topic) []string {
	got := m.Match(tp)
	out := make([]string, len(got))
	for i, p := range got {
		out[i] = p.String()
	}
	sort.Strings(out)
	return out
}

func TestMatcherExact(t *testing.T) {
	m := NewMatcher()
	m.Add("panel.attr.changed")
	m.Add("panel.hover")

	got := matchSorted(m, "panel.attr.changed")
	if len(got) != 1 || got[0] != "panel.attr.changed" {
		t.Errorf("Match() = %v, want [panel.attr.changed]", got)
	}

	if got := m.Match("panel.zoom"); got != nil {
		t.Errorf("Match() on unregistered topic = %v, want nil", got)
	}
}

func TestMatcherWildcards(t *testing.T) {
	m := NewMatcher()
	m.Add("panel.*")
	m.Add("panel.**")
	m.Add("panel.attr.*")
	m.Add("**")

	tests := []struct {
		topic Topic
		want  []string
	}{
		{"panel.hover", []string{"**", "panel.*", "panel.**"}},
		{"panel.attr.changed", []string{"**", "panel.**", "panel.attr.*"}},
		{"data.loaded", []string{"**"}},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			got := matchSorted(m, tt.topic)
			if len(got) != len(tt.want) {
				t.Fatalf("Match(%q) = %v, want %v", tt.topic, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Match(%q)[%d] = %v, want %v", tt.topic, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMatcherTrailingMultiWildcard(t *testing.T) {
	m := NewMatcher()
	m.Add("panel.**")

	// ** matches zero segments, so the bare parent matches too.
	if got := m.Match("panel"); len(got) != 1 {
		t.Errorf("Match(panel) = %v, want one match", got)
	}
}

func TestMatcherAddRemove(t *testing.T) {
	m := NewMatcher()
	m.Add("panel.hover")
	m.Add("panel.hover") // duplicate, ignored

	if got := m.Match("panel.hover"); len(got) != 1 {
		t.Fatalf("Match() after duplicate Add = %v, want one match", got)
	}
	if !m.Has("panel.hover") {
		t.Error("Has() = false, want true")
	}

	m.Remove("panel.hover")
	if got := m.Match("panel.hover"); got != nil {
		t.Errorf("Match() after Remove = %v, want nil", got)
	}
	if m.Has("panel.hover") {
		t.Error("Has() after Remove = true, want false")
	}

	// Removing an unknown pattern is a no-op.
	m.Remove("data.loaded")
}

func TestMatcherPatterns(t *testing.T) {
	m := NewMatcher()
	m.Add("panel.*")
	m.Add("data.loaded")

	got := m.Patterns()
	if len(got) != 2 {
		t.Errorf("Patterns() returned %d patterns, want 2", len(got))
	}
}

func TestMatcherConcurrent(t *testing.T) {
	m := NewMatcher()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			m.Add("panel.attr.changed")
			m.Remove("panel.attr.changed")
		}
	}()

	for i := 0; i < 100; i++ {
		m.Match("panel.attr.changed")
	}
	<-done
}
