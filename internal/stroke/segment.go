// Package stroke holds the drawing history: smoothed points, immutable line segments,
// and the undo/redo action log that replays them onto a surface.
package stroke

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Brush width bounds accepted from configuration and the API.
const (
	MinWidth = 1
	MaxWidth = 20
)

// ErrInvalidBrush is returned when a brush setting is out of range.
var ErrInvalidBrush = errors.New("invalid brush")

// Point is a position on the canvas in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trunc drops the fractional part of both coordinates, toward zero.
func (p Point) Trunc() Point {
	return Point{X: math.Trunc(p.X), Y: math.Trunc(p.Y)}
}

// Cap is the shape drawn at both ends of a segment.
type Cap int

const (
	CapRound Cap = iota
	CapSquare
)

// String returns the configuration name of the cap.
func (c Cap) String() string {
	if c == CapSquare {
		return "square"
	}
	return "round"
}

// MarshalText implements encoding.TextMarshaler.
func (c Cap) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cap) UnmarshalText(text []byte) error {
	parsed, err := ParseCap(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCap parses "round" or "square" (case-insensitive).
func ParseCap(s string) (Cap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round":
		return CapRound, nil
	case "square":
		return CapSquare, nil
	default:
		return CapRound, fmt.Errorf("%w: unknown cap %q", ErrInvalidBrush, s)
	}
}

// Brush is the pen configuration applied to newly recorded segments.
type Brush struct {
	Color color.NRGBA
	Width int
	Cap   Cap
}

// DefaultBrush is black, 8 px wide, with round caps.
func DefaultBrush() Brush {
	return Brush{
		Color: color.NRGBA{A: 255},
		Width: 8,
		Cap:   CapRound,
	}
}

// Validate checks the width bounds.
func (b Brush) Validate() error {
	if b.Width < MinWidth || b.Width > MaxWidth {
		return fmt.Errorf("%w: width %d outside [%d, %d]", ErrInvalidBrush, b.Width, MinWidth, MaxWidth)
	}
	return nil
}

// Segment is one recorded line between two consecutive smoothed positions.
// Segments are values and are never modified after creation.
type Segment struct {
	Color color.NRGBA `json:"-"`
	Width int         `json:"width"`
	Cap   Cap         `json:"cap"`
	Start Point       `json:"start"`
	End   Point       `json:"end"`
}

// NewSegment builds a segment from the brush and the two end points.
func NewSegment(b Brush, start, end Point) Segment {
	return Segment{
		Color: b.Color,
		Width: b.Width,
		Cap:   b.Cap,
		Start: start,
		End:   end,
	}
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque colour.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q is not #rrggbb", ErrInvalidBrush, s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q: %v", ErrInvalidBrush, s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// HexColor formats an opaque colour as "#rrggbb".
func HexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette lists the named colours offered by the host UI.
var Palette = map[string]color.NRGBA{
	"black":      {0, 0, 0, 255},
	"red":        {255, 0, 0, 255},
	"green":      {0, 255, 0, 255},
	"blue":       {0, 0, 255, 255},
	"yellow":     {255, 255, 0, 255},
	"cyan":       {0, 255, 255, 255},
	"magenta":    {255, 0, 255, 255},
	"gray":       {128, 128, 128, 255},
	"orange":     {255, 165, 0, 255},
	"purple":     {128, 0, 128, 255},
	"pink":       {255, 192, 203, 255},
	"brown":      {165, 42, 42, 255},
	"white":      {255, 255, 255, 255},
	"dark-green": {0, 100, 0, 255},
}

// LookupColor resolves a palette name or a hex string.
func LookupColor(s string) (color.NRGBA, error) {
	if c, ok := Palette[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return ParseHexColor(s)
}
