package params

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDimension replaces any missing or non-numeric half of a resolution.
const DefaultDimension int32 = 100

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int32
	Height int32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "WxH". It never fails: input without exactly one
// 'x' yields 100x100, and each half that is not an integer falls back to
// 100 on its own while the other half keeps its value.
func ParseResolution(raw string) Resolution {
	res := Resolution{Width: DefaultDimension, Height: DefaultDimension}

	parts := strings.Split(raw, "x")
	if len(parts) != 2 {
		return res
	}

	if w, err := parseDimension(parts[0]); err == nil {
		res.Width = w
	}
	if h, err := parseDimension(parts[1]); err == nil {
		res.Height = h
	}
	return res
}

func parseDimension(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
