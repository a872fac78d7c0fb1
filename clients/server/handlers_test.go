package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/imagestub/pkg/cache"
	"github.com/xob0t/imagestub/pkg/metrics"
	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

func testOpts() *Opts {
	return &Opts{
		MaxDimension:        4096,
		MaxTextLength:       64,
		MaxAge:              12 * time.Hour,
		GracefulStopTimeout: 1,
	}
}

func newTestServer(t *testing.T) (*Server, *cache.Memory) {
	t.Helper()
	r, err := render.NewRenderer("")
	require.NoError(t, err)

	c := cache.NewMemory(time.Hour, cache.Limits{Entries: 100}, 0)
	t.Cleanup(func() { _ = c.Close() })

	return New(testOpts(), r, c, metrics.New()), c
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeImage(t *testing.T, rec *httptest.ResponseRecorder) image.Image {
	t.Helper()
	img, err := imaging.Decode(rec.Body)
	require.NoError(t, err)
	return img
}

func TestImageRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		target       string
		wantW, wantH int
		wantCorner   color.NRGBA
	}{
		{"/image", 200, 200, params.RGB(0x7d, 0x7d, 0x7d).NRGBA()},
		{"/image/320", 320, 200, params.RGB(0x7d, 0x7d, 0x7d).NRGBA()},
		{"/image/320/240", 320, 240, params.RGB(0x7d, 0x7d, 0x7d).NRGBA()},
		{"/image/64/32/ff0000", 64, 32, params.RGB(255, 0, 0).NRGBA()},
		{"/image/64/32/navy/ffffff", 64, 32, params.RGB(0, 0, 128).NRGBA()},
		{"/image/64/32/%23ff000080/000000", 64, 32, color.NRGBA{R: 255, A: 128}},
		{"/image/64/32/rgba(0,%200,%20255,%200.5)", 64, 32, color.NRGBA{B: 255, A: 128}},
		{"/i/64x48", 64, 48, params.RGB(0x7d, 0x7d, 0x7d).NRGBA()},
		{"/i/64x48/00ff00", 64, 48, params.RGB(0, 255, 0).NRGBA()},
		{"/i/garbage", 100, 100, params.RGB(0x7d, 0x7d, 0x7d).NRGBA()},
		{"/i/50xjunk/000000/ffffff", 50, 100, params.RGB(0, 0, 0).NRGBA()},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			require.Equal(t, "public, max-age=43200", rec.Header().Get("Cache-Control"))
			require.Equal(t, "User-Agent", rec.Header().Get("Vary"))
			require.Empty(t, rec.Header().Get("X-Color-Error"))

			img := decodeImage(t, rec)
			require.Equal(t, tt.wantW, img.Bounds().Dx())
			require.Equal(t, tt.wantH, img.Bounds().Dy())
			require.Equal(t, tt.wantCorner, color.NRGBAModel.Convert(img.At(0, 0)))
		})
	}
}

func TestImage_ColorError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/image/100/100/notacolour/ffffff")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get("X-Color-Error"))

	img := decodeImage(t, rec)
	require.Equal(t, params.FallbackBackground.NRGBA(), color.NRGBAModel.Convert(img.At(0, 0)))
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, target := range []string{
		"/image/0",
		"/image/-1/10",
		"/image/abc",
		"/image/5000",
		"/image/10/99999999999",
		"/i/-5x10",
		"/i/10x5000",
		"/image?format=webp",
		"/image?text=" + strings.Repeat("a", 65),
		"/qr/200x200",
		"/qr/200x200?text=hi&format=svg",
	} {
		t.Run(target, func(t *testing.T) {
			require.Equal(t, http.StatusBadRequest, get(t, h, target).Code)
		})
	}

	require.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
	require.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/image", nil))
		return rec.Code
	}())
}

func TestFormats(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/image/80/60?format=jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	require.Equal(t, 80, decodeImage(t, rec).Bounds().Dx())

	rec = get(t, h, "/image/80/60?format=svg&text=hello")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "hello")

	rec = get(t, h, "/i/32x32?format=avi")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "video/x-msvideo", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "RIFF"))
}

func TestQR(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/qr/240x240?text=https%3A%2F%2Fexample.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decodeImage(t, rec)
	require.Equal(t, 240, img.Bounds().Dx())

	rec = get(t, h, "/qr/120x120/bogus/000000?text=hi")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get("X-Color-Error"))
}

func TestCaching(t *testing.T) {
	s, c := newTestServer(t)
	h := s.Handler()

	first := get(t, h, "/image/50/50/ff0000")
	require.Equal(t, 1, c.Len())

	second := get(t, h, "/image/50/50/red")
	require.Equal(t, 1, c.Len(), "equivalent colours share an entry")
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	get(t, h, "/image/50/50/ff0000?format=gif")
	get(t, h, "/image/50/50/ff0000?text=hi")
	require.Equal(t, 3, c.Len())
}

func TestCaching_OversizedResponseNotStored(t *testing.T) {
	r, err := render.NewRenderer("")
	require.NoError(t, err)
	c := cache.NewMemory(time.Hour, cache.Limits{EntryBytes: 4 << 10}, 0)
	t.Cleanup(func() { _ = c.Close() })
	h := New(testOpts(), r, c, metrics.New()).Handler()

	rec := get(t, h, "/image/64/64?format=bmp")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Greater(t, rec.Body.Len(), 4<<10)
	require.Zero(t, c.Len(), "a 64x64 bmp is over the entry cap")

	rec = get(t, h, "/image/16/16")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, c.Len())
}

func TestColorEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/color/rgba(255,%200,%200,%200.5)")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got params.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.OK)
	require.Equal(t, "#ff000080", got.HexA)
	require.Equal(t, "rgba(255, 0, 0, 0.5)", got.Input)

	rec = get(t, s.Handler(), "/color/rgba(1,2,3,2.0)")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.False(t, got.OK)
	require.NotEmpty(t, got.Error)
}

func TestHealthAndRequestID(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/healthz")
	require.Equal(t, "ok", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
