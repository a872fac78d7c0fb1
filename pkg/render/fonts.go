// fonts.go - Font management with custom TTF support and embedded fallback font.
// Uses golang.org/x/image/font for OpenType rendering. Defaults to Go Mono
// when no custom font is specified or when custom font loading fails.
package render

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

const defaultDPI = 72

// FontManager handles font loading with fallback.
type FontManager struct {
	name   string
	parsed *opentype.Font
}

// NewFontManager creates a font manager with the specified font.
// If customPath is empty or unreadable, uses the embedded Go Mono font.
func NewFontManager(customPath string) (*FontManager, error) {
	var fontData []byte
	name := "gomono"

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			slog.Warn("could not load custom font, using default", "path", customPath, "error", err)
		} else {
			fontData = data
			name = customPath
		}
	}

	if fontData == nil {
		fontData = gomono.TTF
	}

	return newFontManager(name, fontData)
}

// NewFontManagerFromBytes creates a font manager from TTF/OTF data already
// in memory, e.g. a font uploaded to the WASM client.
func NewFontManagerFromBytes(name string, data []byte) (*FontManager, error) {
	return newFontManager(name, data)
}

func newFontManager(name string, data []byte) (*FontManager, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}

	return &FontManager{
		name:   name,
		parsed: parsed,
	}, nil
}

// Name reports which font is loaded: the custom path or "gomono".
func (fm *FontManager) Name() string {
	return fm.name
}

// Face returns a font.Face at the specified point size.
// Faces keep internal buffers; callers create one per render and close it.
func (fm *FontManager) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     defaultDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return face, nil
}
