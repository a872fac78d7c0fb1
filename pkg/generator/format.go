package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	SVG  Format = "svg"
	AVI  Format = "avi"
)

// ErrUnsupportedFormat is returned for unknown format names and for
// operations a format cannot perform.
var ErrUnsupportedFormat = errors.New("unsupported format")

type formatInfo struct {
	contentType string
	ext         string
	raster      imaging.Format
	isRaster    bool
}

var formats = map[Format]formatInfo{
	PNG:  {"image/png", ".png", imaging.PNG, true},
	JPEG: {"image/jpeg", ".jpg", imaging.JPEG, true},
	GIF:  {"image/gif", ".gif", imaging.GIF, true},
	BMP:  {"image/bmp", ".bmp", imaging.BMP, true},
	TIFF: {"image/tiff", ".tiff", imaging.TIFF, true},
	SVG:  {contentType: "image/svg+xml", ext: ".svg"},
	AVI:  {contentType: "video/x-msvideo", ext: ".avi"},
}

var aliases = map[string]Format{
	"jpg": JPEG,
	"tif": TIFF,
}

// ParseFormat resolves a format name or file extension such as "PNG",
// ".jpg" or "tif".
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if f, ok := aliases[name]; ok {
		return f, nil
	}
	if _, ok := formats[Format(name)]; ok {
		return Format(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Formats lists every supported format.
func Formats() []Format {
	return []Format{PNG, JPEG, GIF, BMP, TIFF, SVG, AVI}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	return formats[f].contentType
}

// Ext returns the canonical file extension for f, including the dot.
func (f Format) Ext() string {
	return formats[f].ext
}

// Raster reports whether f is encoded from a single bitmap by imaging.
func (f Format) Raster() bool {
	return formats[f].isRaster
}
