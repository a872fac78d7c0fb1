package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/xob0t/imagestub/pkg/params"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("")
	require.NoError(t, err)
	return r
}

func countNot(img *image.NRGBA, c color.NRGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y) != c {
				n++
			}
		}
	}
	return n
}

func TestNewFontManager_Fallback(t *testing.T) {
	fm, err := NewFontManager("/does/not/exist.ttf")
	require.NoError(t, err)
	require.Equal(t, "gomono", fm.Name())

	face, err := fm.Face(CaptionSize)
	require.NoError(t, err)
	require.NoError(t, face.Close())
}

func TestNewRendererFromBytes(t *testing.T) {
	r, err := NewRendererFromBytes("goregular", goregular.TTF)
	require.NoError(t, err)
	require.Equal(t, "goregular", r.Fonts().Name())

	img, err := r.Placeholder(params.Describe(40, 40, "000000", "ffffff", ""))
	require.NoError(t, err)
	require.Equal(t, 40, img.Bounds().Dx())

	_, err = NewRendererFromBytes("junk", []byte("not a font"))
	require.Error(t, err)
}

func TestFitCaption(t *testing.T) {
	r := newTestRenderer(t)

	lines, size, err := r.FitCaption(params.Describe(1000, 1000, "000000", "ffffff", ""))
	require.NoError(t, err)
	require.Equal(t, []string{"1000x1000"}, lines)
	require.Equal(t, CaptionSize, size)

	lines, size, err = r.FitCaption(params.Describe(20, 20, "bad", "ffffff", ""))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, MinCaptionSize, size)

	_, _, err = r.FitCaption(params.Describe(0, 20, "000000", "ffffff", ""))
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestCaption(t *testing.T) {
	tests := []struct {
		name     string
		desc     params.ImageDescription
		wantText string
		wantSize float64
	}{
		{"dimensions", params.ImageDescription{Width: 200, Height: 100}, "200x100", CaptionSize},
		{"custom text", params.ImageDescription{Width: 200, Height: 100, Text: "hello"}, "hello", CaptionSize},
		{"colour error", params.ImageDescription{Width: 200, Height: 100, Text: "hello", ColorError: true}, "color\nformat\nerror", ErrorCaptionSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, size := Caption(tt.desc)
			require.Equal(t, tt.wantText, text)
			require.Equal(t, tt.wantSize, size)
		})
	}
}

func TestPlaceholder(t *testing.T) {
	r := newTestRenderer(t)
	desc := params.Describe(320, 200, "7d7d7d", "ffffff", "")

	img, err := r.Placeholder(desc)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 320, 200), img.Bounds())

	bg := desc.Background.NRGBA()
	require.Equal(t, bg, img.NRGBAAt(0, 0))
	require.Equal(t, bg, img.NRGBAAt(319, 199))
	require.Positive(t, countNot(img, bg), "caption should be drawn")
}

func TestPlaceholder_ColorError(t *testing.T) {
	r := newTestRenderer(t)
	desc := params.Describe(300, 300, "not-a-colour", "ffffff", "")
	require.True(t, desc.ColorError)

	img, err := r.Placeholder(desc)
	require.NoError(t, err)
	require.Equal(t, params.FallbackBackground.NRGBA(), img.NRGBAAt(0, 0))
}

func TestPlaceholder_TranslucentBackground(t *testing.T) {
	r := newTestRenderer(t)
	desc := params.Describe(64, 64, "rgba(255, 0, 0, 0.5)", "000000", "")

	img, err := r.Placeholder(desc)
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{R: 255, A: 128}, img.NRGBAAt(0, 0))
}

func TestPlaceholder_TinyCanvas(t *testing.T) {
	r := newTestRenderer(t)

	img, err := r.Placeholder(params.Describe(1, 1, "000000", "ffffff", ""))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
}

func TestPlaceholder_InvalidSize(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Placeholder(params.Describe(0, 10, "000000", "ffffff", ""))
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = r.QR(params.Describe(10, -1, "000000", "ffffff", "x"))
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestFitScale(t *testing.T) {
	r := newTestRenderer(t)
	face, err := r.fontManager.Face(CaptionSize)
	require.NoError(t, err)
	defer face.Close()

	require.Equal(t, 1.0, fitScale(face, []string{"1x1"}, image.Rect(0, 0, 1000, 1000)))
	require.Less(t, fitScale(face, []string{"a very long caption indeed"}, image.Rect(0, 0, 50, 1000)), 1.0)
	require.Less(t, fitScale(face, []string{"a", "b", "c"}, image.Rect(0, 0, 1000, 20)), 1.0)
}

func TestQR(t *testing.T) {
	r := newTestRenderer(t)
	desc := params.Describe(300, 200, "ffffff", "000000", "https://example.com")

	img, err := r.QR(desc)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 300, 200), img.Bounds())

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	require.Equal(t, white, img.NRGBAAt(0, 0))
	require.Equal(t, white, img.NRGBAAt(299, 199))
	require.Positive(t, countNot(img, white), "qr modules should be drawn")
}

func TestQR_Errors(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.QR(params.Describe(100, 100, "ffffff", "000000", ""))
	require.ErrorIs(t, err, ErrEmptyQRText)

	img, err := r.QR(params.Describe(100, 100, "bogus", "000000", ""))
	require.NoError(t, err)
	require.Equal(t, params.FallbackBackground.NRGBA(), img.NRGBAAt(0, 0))
}
