package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xob0t/imagestub/pkg/generator"
	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

const (
	defaultDimension  = 200
	defaultBackground = "7d7d7d"
	defaultForeground = "ffffff"

	qrBackground = "ffffff"
	qrForeground = "000000"
)

// imageRequest is a validated image route.
type imageRequest struct {
	desc   params.ImageDescription
	format generator.Format
	qr     bool
}

// cacheKey identifies the rendered bytes. Colours are keyed by their
// resolved value so equivalent spellings share an entry.
func (ir imageRequest) cacheKey() string {
	kind := "image"
	if ir.qr {
		kind = "qr"
	}
	d := ir.desc
	return fmt.Sprintf("%s-%s-%d-%d-%s-%s-%t-%q",
		kind, ir.format, d.Width, d.Height, d.Background.HexA(), d.Foreground.HexA(), d.ColorError, d.Text)
}

// handleImage serves /image/{width}/{height}/{bg}/{fg}, each segment optional.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	width, err := s.dimension(r.PathValue("width"))
	if err != nil {
		http.Error(w, "width: "+err.Error(), http.StatusBadRequest)
		return
	}
	height, err := s.dimension(r.PathValue("height"))
	if err != nil {
		http.Error(w, "height: "+err.Error(), http.StatusBadRequest)
		return
	}

	bg := pathOr(r, "bg", defaultBackground)
	fg := pathOr(r, "fg", defaultForeground)
	s.serveImage(w, r, width, height, bg, fg, false)
}

// handleCompact serves /i/{resolution}/{bg}/{fg} with a "WxH" resolution.
func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolution(w, r)
	if !ok {
		return
	}
	bg := pathOr(r, "bg", defaultBackground)
	fg := pathOr(r, "fg", defaultForeground)
	s.serveImage(w, r, res.Width, res.Height, bg, fg, false)
}

// handleQR serves /qr/{resolution}/{bg}/{fg}?text=...
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolution(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("text") == "" {
		http.Error(w, "text query parameter is required", http.StatusBadRequest)
		return
	}
	bg := pathOr(r, "bg", qrBackground)
	fg := pathOr(r, "fg", qrForeground)
	s.serveImage(w, r, res.Width, res.Height, bg, fg, true)
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(params.Inspect(r.PathValue("raw")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, width, height int32, bg, fg string, qr bool) {
	query := r.URL.Query()

	text := query.Get("text")
	if len(text) > s.opts.MaxTextLength {
		http.Error(w, fmt.Sprintf("text longer than %d bytes", s.opts.MaxTextLength), http.StatusBadRequest)
		return
	}

	format := generator.PNG
	if raw := query.Get("format"); raw != "" {
		f, err := generator.ParseFormat(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	if qr && format == generator.SVG {
		http.Error(w, "qr codes cannot be rendered as svg", http.StatusBadRequest)
		return
	}

	req := imageRequest{
		desc:   s.describe(r.Context(), width, height, bg, fg, text),
		format: format,
		qr:     qr,
	}

	data, err := s.render(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, render.ErrInvalidSize) || errors.Is(err, render.ErrEmptyQRText) {
			status = http.StatusBadRequest
		}
		if status == http.StatusInternalServerError {
			s.log.ErrorContext(r.Context(), "render failed", "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.opts.MaxAge.Seconds())))
	h.Set("Vary", "User-Agent")
	if req.desc.ColorError {
		h.Set("X-Color-Error", "true")
	}
	w.Write(data)
}

// describe assembles the image description and records which colour, if
// any, fell back.
func (s *Server) describe(ctx context.Context, width, height int32, bg, fg, text string) params.ImageDescription {
	desc := params.Describe(width, height, bg, fg, text)
	if !desc.ColorError {
		return desc
	}
	for _, c := range []struct{ role, raw string }{{"background", bg}, {"foreground", fg}} {
		if _, err := params.Parse(c.raw); err != nil {
			s.metrics.ColorFailure(c.role)
			s.log.WarnContext(ctx, "colour fell back", "role", c.role, "input", c.raw, "error", err)
		}
	}
	return desc
}

// render returns the encoded image from the cache, or renders and stores it.
// Concurrent misses for the same key share one render.
func (s *Server) render(ctx context.Context, req imageRequest) ([]byte, error) {
	key := req.cacheKey()

	data, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.CacheError()
		s.log.WarnContext(ctx, "cache get failed", "error", err)
	case ok:
		s.metrics.CacheHit()
		return data, nil
	default:
		s.metrics.CacheMiss()
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		start := time.Now()
		var buf bytes.Buffer
		cfg := generator.Config{Description: req.desc, Format: req.format, QR: req.qr}
		if err := generator.GenerateToWriter(&buf, s.renderer, cfg); err != nil {
			return nil, err
		}
		s.metrics.ObserveRender(string(req.format), time.Since(start))

		data := buf.Bytes()
		if err := s.cache.Set(context.WithoutCancel(ctx), key, data); err != nil {
			s.metrics.CacheError()
			s.log.WarnContext(ctx, "cache set failed", "error", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// dimension parses a width or height path segment; empty means the default.
func (s *Server) dimension(raw string) (int32, error) {
	if raw == "" {
		return defaultDimension, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if err := s.checkDimension(int32(v)); err != nil {
		return 0, err
	}
	return int32(v), nil
}

func (s *Server) checkDimension(v int32) error {
	if v < 1 || v > s.opts.MaxDimension {
		return fmt.Errorf("%d is outside [1, %d]", v, s.opts.MaxDimension)
	}
	return nil
}

// resolution parses the {resolution} segment and writes a 400 when the
// result is out of bounds.
func (s *Server) resolution(w http.ResponseWriter, r *http.Request) (params.Resolution, bool) {
	res := params.ParseResolution(r.PathValue("resolution"))
	for _, v := range []int32{res.Width, res.Height} {
		if err := s.checkDimension(v); err != nil {
			http.Error(w, "resolution: "+err.Error(), http.StatusBadRequest)
			return res, false
		}
	}
	return res, true
}

func pathOr(r *http.Request, name, def string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	return def
}
