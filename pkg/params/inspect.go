package params

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBAValue holds 8-bit channels for JSON output.
type RGBAValue struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// HSLValue is hue in degrees (0-360), saturation and lightness in percent.
type HSLValue struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// Inspection reports how a raw color string was understood.
type Inspection struct {
	Input string     `json:"input"`
	OK    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`
	Hex   string     `json:"hex,omitempty"`
	HexA  string     `json:"hexa,omitempty"`
	RGBA  *RGBAValue `json:"rgba,omitempty"`
	HSL   *HSLValue  `json:"hsl,omitempty"`
}

// Inspect parses raw and describes the result in several notations.
func Inspect(raw string) Inspection {
	res := Inspection{Input: raw}

	c, err := Parse(raw)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()

	res.OK = true
	res.Hex = c.Hex()
	res.HexA = c.HexA()
	res.RGBA = &RGBAValue{R: c.R, G: c.G, B: c.B, A: c.A}
	res.HSL = &HSLValue{
		H: int(math.Round(h)) % 360,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
	return res
}
