// svg.go - Vector placeholders. Same layout as the raster renderer: a
// background rect and the caption centred line by line.
package generator

import (
	"fmt"
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

const svgLineSpacing = 1.2

// WriteSVG writes desc as an SVG document.
func WriteSVG(out io.Writer, r *render.Renderer, desc params.ImageDescription) error {
	lines, size, err := r.FitCaption(desc)
	if err != nil {
		return err
	}

	w := &stickyWriter{w: out}
	width, height := int(desc.Width), int(desc.Height)
	lineHeight := size * svgLineSpacing

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fillStyle("fill", desc.Background))

	textStyle := fmt.Sprintf("%s;font-family:%s;font-size:%gpx;text-anchor:middle",
		fillStyle("fill", desc.Foreground), "monospace", size)

	// Baselines sit roughly 0.8em below the top of each line.
	top := (float64(height) - lineHeight*float64(len(lines))) / 2
	for i, line := range lines {
		y := top + lineHeight*float64(i) + size*0.8
		canvas.Text(width/2, int(y), line, textStyle)
	}
	canvas.End()

	if w.err != nil {
		return fmt.Errorf("failed to write SVG: %w", w.err)
	}
	return nil
}

func fillStyle(prop string, c params.Color) string {
	style := prop + ":" + c.Hex()
	if c.A != 255 {
		style += ";" + prop + "-opacity:" + strconv.FormatFloat(float64(c.A)/255, 'f', 3, 64)
	}
	return style
}
