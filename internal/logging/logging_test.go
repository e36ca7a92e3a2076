package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below the level leaked: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("messages at or above the level missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "test"})

	l.Info("loaded %d items from %s", 3, "a.json")

	out := buf.String()
	if !strings.Contains(out, "loaded 3 items from a.json") {
		t.Errorf("formatted message missing: %q", out)
	}
	if !strings.Contains(out, "[INFO] test:") {
		t.Errorf("level and prefix missing: %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf}).WithComponent("hub")

	l.Info("ready")

	if !strings.Contains(buf.String(), "component=hub") {
		t.Errorf("component field missing: %q", buf.String())
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Level: LevelDebug, Output: &buf})
	_ = parent.WithField("panel", "egfr")

	parent.Info("plain")

	if strings.Contains(buf.String(), "panel=egfr") {
		t.Errorf("child field leaked into parent: %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelError, Output: &buf})

	l.Info("before")
	l.SetLevel(LevelDebug)
	l.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("message logged below level: %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("message missing after SetLevel: %q", out)
	}
}

func TestNullLogger(t *testing.T) {
	// Must not panic and must stay silent.
	NullLogger.Error("nothing to see")
}
