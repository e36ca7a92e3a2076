package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a true-color RGB value. The zero value with Default set stands
// for the terminal's own default color.
type Color struct {
	R, G, B uint8

	// Default marks the terminal's default color; R, G, B are ignored.
	Default bool
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{Default: true}

// Common colors.
var (
	ColorBlack  = Color{R: 0, G: 0, B: 0}
	ColorWhite  = Color{R: 255, G: 255, B: 255}
	ColorRed    = Color{R: 255, G: 0, B: 0}
	ColorGreen  = Color{R: 0, G: 255, B: 0}
	ColorBlue   = Color{R: 0, G: 0, B: 255}
	ColorYellow = Color{R: 255, G: 255, B: 0}
	ColorGray   = Color{R: 128, G: 128, B: 128}
)

// ColorFromRGB creates a color from RGB components.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ColorFromHex parses "#rgb" or "#rrggbb" (leading # optional).
func ColorFromHex(hex string) (Color, error) {
	hex = strings.TrimPrefix(hex, "#")

	parse := func(s string) (uint8, error) {
		v, err := strconv.ParseUint(s, 16, 8)
		return uint8(v), err
	}

	switch len(hex) {
	case 3:
		r, err1 := parse(string(hex[0]) + string(hex[0]))
		g, err2 := parse(string(hex[1]) + string(hex[1]))
		b, err3 := parse(string(hex[2]) + string(hex[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("invalid hex color: %s", hex)
		}
		return Color{R: r, G: g, B: b}, nil
	case 6:
		r, err1 := parse(hex[0:2])
		g, err2 := parse(hex[2:4])
		b, err3 := parse(hex[4:6])
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("invalid hex color: %s", hex)
		}
		return Color{R: r, G: g, B: b}, nil
	default:
		return Color{}, fmt.Errorf("invalid hex color length: %s", hex)
	}
}

// IsDefault reports whether this is the terminal default color.
func (c Color) IsDefault() bool {
	return c.Default
}

// Equals reports whether two colors are equal.
func (c Color) Equals(other Color) bool {
	if c.Default != other.Default {
		return false
	}
	if c.Default {
		return true
	}
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// String returns "#RRGGBB" or "default".
func (c Color) String() string {
	if c.Default {
		return "default"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Hex returns the "#RRGGBB" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Lighten moves the color toward white by the given fraction (0..1).
func (c Color) Lighten(amount float64) Color {
	if c.Default {
		return c
	}
	return Color{
		R: uint8(clamp01(float64(c.R)/255+(1-float64(c.R)/255)*amount) * 255),
		G: uint8(clamp01(float64(c.G)/255+(1-float64(c.G)/255)*amount) * 255),
		B: uint8(clamp01(float64(c.B)/255+(1-float64(c.B)/255)*amount) * 255),
	}
}

// Darken moves the color toward black by the given fraction (0..1).
func (c Color) Darken(amount float64) Color {
	if c.Default {
		return c
	}
	return Color{
		R: uint8(float64(c.R) * (1 - amount)),
		G: uint8(float64(c.G) * (1 - amount)),
		B: uint8(float64(c.B) * (1 - amount)),
	}
}

// Blend mixes this color toward other by amount (0 = this, 1 = other).
// Blending with a default color snaps at amount 0.5 since the actual
// terminal color is unknown.
func (c Color) Blend(other Color, amount float64) Color {
	if c.Default || other.Default {
		if amount < 0.5 {
			return c
		}
		return other
	}
	amount = clamp01(amount)
	return Color{
		R: uint8(float64(c.R)*(1-amount) + float64(other.R)*amount),
		G: uint8(float64(c.G)*(1-amount) + float64(other.G)*amount),
		B: uint8(float64(c.B)*(1-amount) + float64(other.B)*amount),
	}
}

// Luminance returns the relative luminance (0..1), used to pick a readable
// glyph color over an arbitrary cell background.
func (c Color) Luminance() float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

// ContrastText returns black or white, whichever reads better over c.
func (c Color) ContrastText() Color {
	if c.Luminance() > 0.5 {
		return ColorBlack
	}
	return ColorWhite
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
