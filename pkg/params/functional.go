// functional.go - rgb()/rgba() notation.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFunctional parses "rgb(r, g, b)" and "rgba(r, g, b, a)".
//
// The arguments are the text between the first '(' and the first ')'.
// Three integer arguments give an opaque color; a fourth decimal argument is
// an opacity passed through QuantizeAlpha. Whitespace around arguments is
// ignored. Channels outside 0..255 are rejected.
func ParseFunctional(s string) (Color, error) {
	left := strings.IndexByte(s, '(')
	right := strings.IndexByte(s, ')')
	if left < 0 || right < left {
		return Color{}, fmt.Errorf("%w: %q: unbalanced parentheses", ErrMalformedColor, s)
	}

	switch name := strings.ToLower(strings.TrimSpace(s[:left])); name {
	case "rgb", "rgba":
	default:
		return Color{}, fmt.Errorf("%w: %q: unknown color function %q", ErrMalformedColor, s, name)
	}

	args := strings.Split(s[left+1:right], ",")
	if len(args) != 3 && len(args) != 4 {
		return Color{}, fmt.Errorf("%w: %q: expected 3 or 4 arguments, got %d", ErrMalformedColor, s, len(args))
	}

	var ch [3]uint8
	for i := range ch {
		v, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil {
			return Color{}, fmt.Errorf("%w: invalid %s channel in %q", ErrMalformedColor, channelNames[i], s)
		}
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: %s channel %d out of range in %q", ErrMalformedColor, channelNames[i], v, s)
		}
		ch[i] = uint8(v)
	}

	c := RGB(ch[0], ch[1], ch[2])
	if len(args) == 3 {
		return c, nil
	}

	token := strings.TrimSpace(args[3])
	if !isDecimal(token) {
		return Color{}, fmt.Errorf("%w: invalid alpha in %q", ErrMalformedColor, s)
	}
	a, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return Color{}, fmt.Errorf("%w: invalid alpha in %q", ErrMalformedColor, s)
	}
	c.A, err = QuantizeAlpha(a)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrMalformedColor, s, err)
	}
	return c, nil
}

// isDecimal reports whether s uses plain decimal notation, optionally with an
// exponent. It keeps hex floats, underscores, inf and nan away from ParseFloat.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '+', r == '-', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
