package params

// Colors substituted when a request color does not parse.
var (
	FallbackBackground = RGB(211, 211, 211) // lightgray
	FallbackForeground = RGB(255, 0, 0)     // red
)

// ImageDescription is everything the renderer needs for one placeholder.
type ImageDescription struct {
	Width      int32
	Height     int32
	Background Color
	Foreground Color
	// ColorError is set when either color fell back; the renderer must then
	// draw a distinguishable error state.
	ColorError bool
	// Text replaces the default "WxH" caption when non-empty.
	Text string
}

// Describe parses both colors and assembles the description, substituting
// the fallback colors and raising ColorError for any color that fails.
func Describe(width, height int32, background, foreground, text string) ImageDescription {
	desc := ImageDescription{
		Width:  width,
		Height: height,
		Text:   text,
	}

	var ok bool
	if desc.Background, ok = ParseColor(background); !ok {
		desc.Background = FallbackBackground
		desc.ColorError = true
	}
	if desc.Foreground, ok = ParseColor(foreground); !ok {
		desc.Foreground = FallbackForeground
		desc.ColorError = true
	}

	return desc
}
