// color.go - Color descriptor and the dispatcher that routes raw strings to a grammar.
//
// Package params turns loosely formatted, CSS-flavoured request parameters
// (hex colors, web color names, rgb()/rgba() notation, "WxH" sizes) into
// normalized values for the renderer. Every parser is pure and total: it
// returns a value or an error and never panics, so all of it is safe for
// concurrent use.
package params

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

var (
	// ErrMalformedColor reports a string that matches no color grammar.
	ErrMalformedColor = errors.New("malformed color")
	// ErrOutOfTableAlpha reports an opacity that does not round onto a
	// hundredths key between 0.00 and 1.00.
	ErrOutOfTableAlpha = errors.New("alpha out of table")
)

// Color is a straight-alpha 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// RGB returns an opaque Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// Hex formats c as "#rrggbb" (alpha excluded).
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HexA formats c as "#rrggbbaa".
func (c Color) HexA() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String returns the shortest hex form that round-trips through Parse.
func (c Color) String() string {
	if c.A == 255 {
		return c.Hex()
	}
	return c.HexA()
}

// NRGBA converts c to the standard library's non-premultiplied color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

type parseFunc func(string) (Color, error)

// Candidate lists, tried in order until one succeeds.
var (
	hexCandidates        = []parseFunc{ParseHex}
	functionalCandidates = []parseFunc{ParseFunctional}
	bareCandidates       = []parseFunc{ParseNamed, parseBareHex}
)

// Parse converts a raw color parameter into a Color.
//
// The trimmed input is routed by shape: a leading '#' selects the hex
// grammar, a leading "rgb" the functional grammar. Anything else is tried as
// a web color name and then as hex digits without the '#'. A failure wraps
// ErrMalformedColor; Parse never substitutes a default.
func Parse(raw string) (Color, error) {
	s := strings.TrimSpace(raw)

	candidates := candidatesFor(s)
	var lastErr error
	for _, parse := range candidates {
		c, err := parse(s)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}

	if len(candidates) == 1 {
		return Color{}, lastErr
	}
	return Color{}, fmt.Errorf("%w: %q is not a color name or hex value", ErrMalformedColor, raw)
}

// ParseColor is Parse reduced to a success flag.
func ParseColor(raw string) (Color, bool) {
	c, err := Parse(raw)
	return c, err == nil
}

func candidatesFor(s string) []parseFunc {
	switch {
	case strings.HasPrefix(s, "#"):
		return hexCandidates
	case len(s) >= 3 && strings.EqualFold(s[:3], "rgb"):
		return functionalCandidates
	default:
		return bareCandidates
	}
}

func parseBareHex(s string) (Color, error) {
	return ParseHex("#" + s)
}
