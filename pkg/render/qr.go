// qr.go - QR code images. The symbol is encoded with go-qrcode's standard
// writer into an in-memory PNG, then scaled and centred on a WxH canvas
// filled with the background colour.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/xob0t/imagestub/pkg/params"
)

// ErrEmptyQRText is returned when a QR code is requested without content.
var ErrEmptyQRText = errors.New("qr text is empty")

const (
	qrModuleWidth = 8
	qrBorderWidth = 16
)

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

// QR renders desc.Text as a QR code. When desc carries a colour error the
// error placeholder is returned instead.
func (r *Renderer) QR(desc params.ImageDescription) (*image.NRGBA, error) {
	if err := checkSize(desc); err != nil {
		return nil, err
	}
	if desc.ColorError {
		return r.Placeholder(desc)
	}
	if desc.Text == "" {
		return nil, ErrEmptyQRText
	}

	symbol, err := encodeQR(desc.Text, desc.Background, desc.Foreground)
	if err != nil {
		return nil, err
	}

	side := int(min(desc.Width, desc.Height))
	scaled := imaging.Resize(symbol, side, side, imaging.NearestNeighbor)
	canvas := imaging.New(int(desc.Width), int(desc.Height), desc.Background.NRGBA())

	return imaging.PasteCenter(canvas, scaled), nil
}

func encodeQR(text string, bg, fg params.Color) (image.Image, error) {
	qrc, err := qrcode.NewWith(text, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart))
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}

	var buf bytes.Buffer
	w := standard.NewWithWriter(nopCloser{&buf},
		standard.WithQRWidth(qrModuleWidth),
		standard.WithBorderWidth(qrBorderWidth),
		standard.WithBgColor(bg.NRGBA()),
		standard.WithFgColor(fg.NRGBA()),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to write qr: %w", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode qr: %w", err)
	}
	return img, nil
}
