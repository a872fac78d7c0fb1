// Package server provides the imagestub HTTP API: placeholder images, QR
// codes and colour diagnostics rendered on demand and cached.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/xob0t/imagestub/pkg/cache"
	"github.com/xob0t/imagestub/pkg/metrics"
	"github.com/xob0t/imagestub/pkg/render"
)

// Opts holds HTTP server options.
type Opts struct {
	Port                int           `long:"port" env:"PORT" description:"Port to serve HTTP on" default:"8080"`
	ReadTimeout         time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"30s"`
	WriteTimeout        time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout" default:"30s"`
	IdleTimeout         time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" description:"HTTP idle timeout" default:"120s"`
	GracefulStopTimeout int           `long:"graceful-stop-timeout" env:"GRACEFUL_STOP_TIMEOUT" description:"How many seconds to wait for graceful stop." default:"30"`
	MaxDimension        int32         `long:"max-dimension" env:"MAX_DIMENSION" description:"Largest accepted width or height" default:"4096"`
	MaxTextLength       int           `long:"max-text-length" env:"MAX_TEXT_LENGTH" description:"Longest accepted text query parameter" default:"512"`
	MaxAge              time.Duration `long:"max-age" env:"MAX_AGE" description:"Cache-Control max-age of image responses" default:"12h"`
}

// Server renders and serves images over HTTP.
type Server struct {
	opts       *Opts
	log        *slog.Logger
	renderer   *render.Renderer
	cache      cache.Cache
	metrics    *metrics.Metrics
	group      singleflight.Group
	httpServer *http.Server
}

// New creates a server. The cache and metrics are owned by the caller.
func New(opts *Opts, renderer *render.Renderer, c cache.Cache, m *metrics.Metrics) *Server {
	return &Server{
		opts:     opts,
		log:      slog.Default(),
		renderer: renderer,
		cache:    c,
		metrics:  m,
	}
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// Handler returns the API with its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, pattern := range []string{
		"GET /image",
		"GET /image/{width}",
		"GET /image/{width}/{height}",
		"GET /image/{width}/{height}/{bg}",
		"GET /image/{width}/{height}/{bg}/{fg}",
	} {
		mux.HandleFunc(pattern, s.handleImage)
	}
	mux.HandleFunc("GET /i/{resolution}", s.handleCompact)
	mux.HandleFunc("GET /i/{resolution}/{bg}", s.handleCompact)
	mux.HandleFunc("GET /i/{resolution}/{bg}/{fg}", s.handleCompact)
	mux.HandleFunc("GET /qr/{resolution}", s.handleQR)
	mux.HandleFunc("GET /qr/{resolution}/{bg}", s.handleQR)
	mux.HandleFunc("GET /qr/{resolution}/{bg}/{fg}", s.handleQR)
	mux.HandleFunc("GET /color/{raw}", s.handleColor)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return requestID(s.accessLog(mux))
}

// Run serves HTTP until ctx is cancelled, then stops gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "starting HTTP server", "port", s.opts.Port)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server exited unexpectedly: %w", err)
	case <-ctx.Done():
		return s.GracefulStop()
	}
}

// GracefulStop waits for in-flight requests up to GracefulStopTimeout,
// then closes the remaining connections.
func (s *Server) GracefulStop() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("gracefully stopping HTTP server")
	duration := time.Duration(s.opts.GracefulStopTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	s.log.Warn("graceful shutdown timed out")
	var result *multierror.Error
	result = multierror.Append(result, err)
	if cerr := s.httpServer.Close(); cerr != nil {
		result = multierror.Append(result, cerr)
	}
	return result.ErrorOrNil()
}
