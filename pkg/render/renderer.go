// renderer.go - Placeholder rendering: a solid canvas in the background colour
// with a centred caption in the foreground colour. Multi-line captions are
// centred line by line and shrunk until they fit the canvas.
package render

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/xob0t/imagestub/pkg/params"
)

const (
	// CaptionSize is the point size of the "WxH" caption.
	CaptionSize = 27.0
	// ErrorCaptionSize is the point size of the colour error caption.
	ErrorCaptionSize = 24.0
	// MinCaptionSize is the smallest size a caption is shrunk to.
	MinCaptionSize = 6.0

	errorCaption = "color\nformat\nerror"

	// Captions may use this share of the canvas in each direction.
	fillRatio = 0.9
)

// ErrInvalidSize is returned for canvases with a non-positive dimension.
var ErrInvalidSize = errors.New("invalid image size")

// Renderer draws placeholder and QR images.
type Renderer struct {
	fontManager *FontManager
}

// NewRenderer creates a renderer using the font at fontPath, or Go Mono when empty.
func NewRenderer(fontPath string) (*Renderer, error) {
	fm, err := NewFontManager(fontPath)
	if err != nil {
		return nil, err
	}

	return &Renderer{fontManager: fm}, nil
}

// NewRendererFromBytes creates a renderer from in-memory font data.
func NewRendererFromBytes(name string, fontData []byte) (*Renderer, error) {
	fm, err := NewFontManagerFromBytes(name, fontData)
	if err != nil {
		return nil, err
	}

	return &Renderer{fontManager: fm}, nil
}

// Fonts returns the renderer's font manager.
func (r *Renderer) Fonts() *FontManager {
	return r.fontManager
}

// Caption returns the text drawn on a placeholder and its nominal point size.
func Caption(desc params.ImageDescription) (string, float64) {
	switch {
	case desc.ColorError:
		return errorCaption, ErrorCaptionSize
	case desc.Text != "":
		return desc.Text, CaptionSize
	default:
		return fmt.Sprintf("%dx%d", desc.Width, desc.Height), CaptionSize
	}
}

func checkSize(desc params.ImageDescription) error {
	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, desc.Width, desc.Height)
	}
	return nil
}

// Placeholder renders desc as a WxH image.
func (r *Renderer) Placeholder(desc params.ImageDescription) (*image.NRGBA, error) {
	if err := checkSize(desc); err != nil {
		return nil, err
	}

	img := imaging.New(int(desc.Width), int(desc.Height), desc.Background.NRGBA())

	text, size := Caption(desc)
	if err := r.drawCaption(img, text, size, desc.Foreground); err != nil {
		return nil, err
	}

	return img, nil
}

// drawCaption centres text on img, one line under the other.
func (r *Renderer) drawCaption(img *image.NRGBA, text string, size float64, col params.Color) error {
	lines := strings.Split(text, "\n")

	face, err := r.fittedFace(lines, size, img.Bounds())
	if err != nil {
		return err
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	bounds := img.Bounds()

	y := (bounds.Dy()-lineHeight*len(lines))/2 + metrics.Ascent.Ceil()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col.NRGBA()),
		Face: face,
	}
	for _, line := range lines {
		advance := drawer.MeasureString(line).Ceil()
		drawer.Dot = fixed.P((bounds.Dx()-advance)/2, y)
		drawer.DrawString(line)
		y += lineHeight
	}

	return nil
}

// fittedFace returns a face at size, or smaller when the lines would
// overflow bounds.
func (r *Renderer) fittedFace(lines []string, size float64, bounds image.Rectangle) (font.Face, error) {
	fitted, err := r.fittedSize(lines, size, bounds)
	if err != nil {
		return nil, err
	}
	return r.fontManager.Face(fitted)
}

func (r *Renderer) fittedSize(lines []string, size float64, bounds image.Rectangle) (float64, error) {
	face, err := r.fontManager.Face(size)
	if err != nil {
		return 0, err
	}
	defer face.Close()

	if scale := fitScale(face, lines, bounds); scale < 1 {
		return math.Max(size*scale, MinCaptionSize), nil
	}
	return size, nil
}

// FitCaption returns the caption lines for desc and the point size at which
// they fit a WxH canvas.
func (r *Renderer) FitCaption(desc params.ImageDescription) ([]string, float64, error) {
	if err := checkSize(desc); err != nil {
		return nil, 0, err
	}

	text, size := Caption(desc)
	lines := strings.Split(text, "\n")
	bounds := image.Rect(0, 0, int(desc.Width), int(desc.Height))

	fitted, err := r.fittedSize(lines, size, bounds)
	if err != nil {
		return nil, 0, err
	}
	return lines, fitted, nil
}

func fitScale(face font.Face, lines []string, bounds image.Rectangle) float64 {
	widest := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > widest {
			widest = w
		}
	}
	height := face.Metrics().Height.Ceil() * len(lines)

	scale := 1.0
	if widest > 0 {
		scale = math.Min(scale, fillRatio*float64(bounds.Dx())/float64(widest))
	}
	if height > 0 {
		scale = math.Min(scale, fillRatio*float64(bounds.Dy())/float64(height))
	}
	return scale
}
