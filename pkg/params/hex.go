package params

import (
	"fmt"
	"strconv"
	"strings"
)

var channelNames = [4]string{"red", "green", "blue", "alpha"}

// ParseHex parses "#rrggbb" or "#rrggbbaa"; the '#' is optional and digits
// are case-insensitive. The trailing pair of an 8-digit value is the alpha
// byte as written, with no quantization.
func ParseHex(s string) (Color, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 && len(digits) != 8 {
		return Color{}, fmt.Errorf("%w: %q: expected 6 or 8 hex digits", ErrMalformedColor, s)
	}

	ch := [4]uint8{3: 255}
	for i := 0; i < len(digits)/2; i++ {
		v, err := strconv.ParseUint(digits[2*i:2*i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: invalid %s channel in %q", ErrMalformedColor, channelNames[i], s)
		}
		ch[i] = uint8(v)
	}

	return Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
