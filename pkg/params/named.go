package params

import (
	"fmt"
	"strings"

	"golang.org/x/image/colornames"
)

// namedColors is the extended web color table keyed by lower-case name.
var namedColors = func() map[string]Color {
	m := make(map[string]Color, len(colornames.Map))
	for name, c := range colornames.Map {
		m[name] = RGB(c.R, c.G, c.B)
	}
	return m
}()

// ParseNamed resolves a web color name such as "cyan" or "lightGrey".
// Matching is case-insensitive; named colors are always opaque.
func ParseNamed(s string) (Color, error) {
	c, ok := namedColors[strings.ToLower(s)]
	if !ok {
		return Color{}, fmt.Errorf("%w: unknown color name %q", ErrMalformedColor, s)
	}
	return c, nil
}
