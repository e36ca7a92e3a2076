// Package config loads deck configuration: a TOML file plus TRACKDECK_*
// environment overrides, validated against the panel attribute vocabulary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/viper"

	"github.com/dshills/trackdeck/internal/panel"
	"github.com/dshills/trackdeck/internal/render/core"
)

// Validation errors.
var (
	// ErrNoTracks reports a configuration without any track.
	ErrNoTracks = errors.New("no tracks configured")

	// ErrDuplicateTrack reports two tracks sharing an id.
	ErrDuplicateTrack = errors.New("duplicate track id")

	// ErrUnknownReflectAttr reports a reflect list entry outside the
	// attribute vocabulary.
	ErrUnknownReflectAttr = errors.New("unknown reflect attribute")
)

// DefaultTrackHeight is the panel height in rows when a track omits one.
const DefaultTrackHeight = 12

// Config is the full deck configuration.
type Config struct {
	Deck    Deck    `mapstructure:"deck"`
	Logging Logging `mapstructure:"logging"`
	Tooltip Tooltip `mapstructure:"tooltip"`
	Tracks  []Track `mapstructure:"track"`
}

// Deck holds deck-wide settings.
type Deck struct {
	// Title is shown in the status line.
	Title string `mapstructure:"title"`

	// Reflect is the space-separated list of attributes the hub reflects
	// across panels.
	Reflect string `mapstructure:"reflect"`

	// ZoomStep is the window fraction removed per zoom step, in (0, 1).
	ZoomStep float64 `mapstructure:"zoom_step"`

	// SnapshotDir is where PNG snapshots are written.
	SnapshotDir string `mapstructure:"snapshot_dir"`

	// Watch reloads track files when they change on disk.
	Watch bool `mapstructure:"watch"`
}

// Logging holds log output settings.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// File receives the log. When empty, output is discarded while the
	// terminal is active; headless snapshot runs log to stderr.
	File string `mapstructure:"file"`
}

// Tooltip holds hover formatting settings.
type Tooltip struct {
	// Script is an optional Lua file defining format(item).
	Script string `mapstructure:"script"`
}

// Track configures one panel.
type Track struct {
	// ID names the track; unique across the deck.
	ID string `mapstructure:"id"`

	// Data is the path of the track's JSON item file.
	Data string `mapstructure:"data"`

	// ColorLow and ColorHigh anchor the heatmap gradient; empty uses the
	// default ramp.
	ColorLow  string `mapstructure:"color_low"`
	ColorHigh string `mapstructure:"color_high"`

	// HighlightColor overrides the highlight band color.
	HighlightColor string `mapstructure:"highlight_color"`

	// WindowStart and WindowEnd give an initial window; nil shows the
	// full domain.
	WindowStart *float64 `mapstructure:"window_start"`
	WindowEnd   *float64 `mapstructure:"window_end"`

	// Height is the panel height in rows.
	Height int `mapstructure:"height"`
}

// Default returns the deck-wide defaults. Tracks must still be supplied,
// from a file or from command-line data paths.
func Default() Config {
	return Config{
		Deck: Deck{
			Title:       "trackdeck",
			Reflect:     "window-start window-end highlight",
			ZoomStep:    panel.DefaultZoomStep,
			SnapshotDir: ".",
			Watch:       true,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads configuration from the given file, or from trackdeck.toml in
// the working directory or ~/.config/trackdeck when the path is empty.
// Environment variables with the TRACKDECK_ prefix override file values
// (TRACKDECK_DECK_ZOOM_STEP, TRACKDECK_LOGGING_LEVEL, ...).
func Load(path string) (Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("deck.title", d.Deck.Title)
	v.SetDefault("deck.reflect", d.Deck.Reflect)
	v.SetDefault("deck.zoom_step", d.Deck.ZoomStep)
	v.SetDefault("deck.snapshot_dir", d.Deck.SnapshotDir)
	v.SetDefault("deck.watch", d.Deck.Watch)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", "")
	v.SetDefault("tooltip.script", "")

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "trackdeck"))
		v.SetConfigName("trackdeck")
	}

	v.SetEnvPrefix("TRACKDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicit path must exist; the search path is optional.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.normalize()
	return c, nil
}

// normalize fills per-track defaults that viper's SetDefault cannot reach
// inside array tables.
func (c *Config) normalize() {
	for i := range c.Tracks {
		if c.Tracks[i].Height <= 0 {
			c.Tracks[i].Height = DefaultTrackHeight
		}
	}
}

// Validate checks the configuration for a runnable deck.
func (c Config) Validate() error {
	if len(c.Tracks) == 0 {
		return ErrNoTracks
	}
	seen := make(map[string]bool, len(c.Tracks))
	for i, tr := range c.Tracks {
		if tr.ID == "" {
			return fmt.Errorf("track %d: empty id", i)
		}
		if seen[tr.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateTrack, tr.ID)
		}
		seen[tr.ID] = true
		if tr.Data == "" {
			return fmt.Errorf("track %s: no data file", tr.ID)
		}
		for _, col := range []struct{ name, val string }{
			{"color_low", tr.ColorLow},
			{"color_high", tr.ColorHigh},
			{"highlight_color", tr.HighlightColor},
		} {
			if col.val == "" {
				continue
			}
			if _, err := core.ColorFromHex(col.val); err != nil {
				return fmt.Errorf("track %s: %s: %w", tr.ID, col.name, err)
			}
		}
	}
	if s := c.Deck.ZoomStep; s <= 0 || s >= 1 {
		return fmt.Errorf("deck.zoom_step %g outside (0, 1)", s)
	}
	if _, err := ParseReflect(c.Deck.Reflect); err != nil {
		return err
	}
	return nil
}

// ParseReflect parses the space-separated reflect list into attribute
// names. An empty list is valid and means nothing is reflected. Unknown
// names error, with a closest-match suggestion when one is near.
func ParseReflect(s string) ([]panel.Attr, error) {
	var attrs []panel.Attr
	for _, f := range strings.Fields(s) {
		a := panel.Attr(f)
		if !panel.IsKnown(a) {
			if near := closestAttr(f); near != "" {
				return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownReflectAttr, f, near)
			}
			return nil, fmt.Errorf("%w: %q", ErrUnknownReflectAttr, f)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// closestAttr returns the vocabulary entry within a small edit distance of
// name, or "" when nothing is close enough to suggest.
func closestAttr(name string) string {
	best, bestDist := "", 4
	for _, a := range panel.KnownAttrs() {
		if d := levenshtein.ComputeDistance(name, string(a)); d < bestDist {
			best, bestDist = string(a), d
		}
	}
	return best
}

// Save writes the configuration as TOML.
func Save(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("deck.title", c.Deck.Title)
	v.Set("deck.reflect", c.Deck.Reflect)
	v.Set("deck.zoom_step", c.Deck.ZoomStep)
	v.Set("deck.snapshot_dir", c.Deck.SnapshotDir)
	v.Set("deck.watch", c.Deck.Watch)
	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.file", c.Logging.File)
	v.Set("tooltip.script", c.Tooltip.Script)

	tracks := make([]map[string]any, 0, len(c.Tracks))
	for _, tr := range c.Tracks {
		m := map[string]any{
			"id":     tr.ID,
			"data":   tr.Data,
			"height": tr.Height,
		}
		if tr.ColorLow != "" {
			m["color_low"] = tr.ColorLow
		}
		if tr.ColorHigh != "" {
			m["color_high"] = tr.ColorHigh
		}
		if tr.HighlightColor != "" {
			m["highlight_color"] = tr.HighlightColor
		}
		if tr.WindowStart != nil {
			m["window_start"] = *tr.WindowStart
		}
		if tr.WindowEnd != nil {
			m["window_end"] = *tr.WindowEnd
		}
		tracks = append(tracks, m)
	}
	v.Set("track", tracks)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
