// Package generator writes rendered placeholders as image, vector or video files.
//
// All output follows a unified pipeline: resolve an image.Image first (or a
// description for SVG), then encode it in the requested format or
// containerize it as an MJPEG AVI.
package generator

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

const (
	// DefaultDuration is the AVI length in seconds.
	DefaultDuration = 1

	jpegQuality = 95
)

// Config holds parameters for media generation.
type Config struct {
	Description params.ImageDescription
	Format      Format      // Output format; inferred from the file name by Generate when empty
	QR          bool        // Render Description.Text as a QR code
	Duration    int         // Seconds, AVI only (default: 1)
	Image       image.Image // Pre-rendered image; overrides Description for raster and AVI output
}

// Generate creates an output file. Unless cfg.Format is set, the format is
// inferred from the file extension, e.g. ".png", ".jpg", ".svg" or ".avi".
// The media is produced in memory first, so a failed render leaves no file.
func Generate(output string, r *render.Renderer, cfg Config) error {
	if cfg.Format == "" {
		f, err := ParseFormat(filepath.Ext(output))
		if err != nil {
			return err
		}
		cfg.Format = f
	}

	var buf bytes.Buffer
	if err := GenerateToWriter(&buf, r, cfg); err != nil {
		return err
	}

	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// GenerateToWriter writes media in cfg.Format to w.
// This is useful for in-memory generation (e.g., HTTP responses and WASM).
func GenerateToWriter(w io.Writer, r *render.Renderer, cfg Config) error {
	if cfg.Format == SVG {
		if cfg.QR {
			return fmt.Errorf("%w: qr codes are raster only", ErrUnsupportedFormat)
		}
		return WriteSVG(w, r, cfg.Description)
	}

	img, err := resolveImage(r, cfg)
	if err != nil {
		return err
	}

	if cfg.Format == AVI {
		return writeAVI(w, img, max(cfg.Duration, DefaultDuration))
	}
	return Encode(w, img, cfg.Format)
}

// Encode writes img in a raster format.
func Encode(w io.Writer, img image.Image, f Format) error {
	if !f.Raster() {
		return fmt.Errorf("%w: %q is not a raster format", ErrUnsupportedFormat, f)
	}
	if err := imaging.Encode(w, img, formats[f].raster, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return nil
}

// resolveImage returns the source image from config, rendering the
// description if none is provided.
func resolveImage(r *render.Renderer, cfg Config) (image.Image, error) {
	if cfg.Image != nil {
		return cfg.Image, nil
	}
	if cfg.QR {
		return r.QR(cfg.Description)
	}
	return r.Placeholder(cfg.Description)
}
