// Package metrics holds the service's Prometheus collectors and the
// server that exposes them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imagestub"

// Opts holds prometheus opts.
type Opts struct {
	Disable bool `long:"disable" env:"DISABLE" description:"Set to true to disable prometheus metrics"`
	Port    int  `long:"port" env:"PORT" description:"Port to serve Prometheus metrics on" default:"13434"`
}

func (o *Opts) Enabled() bool {
	return o != nil && !o.Disable
}

// Metrics groups the collectors recorded by the HTTP layer.
type Metrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	colorFailures  *prometheus.CounterVec
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering and encoding an image.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"format"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		colorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "color_parse_failures_total",
			Help:      "Colour strings that fell back to the error placeholder, by role.",
		}, []string{"role"}),
	}

	m.Registry.MustRegister(
		m.requests,
		m.renderDuration,
		m.cacheLookups,
		m.colorFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveRender(format string, d time.Duration) {
	m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) CacheHit()   { m.cacheLookups.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss()  { m.cacheLookups.WithLabelValues("miss").Inc() }
func (m *Metrics) CacheError() { m.cacheLookups.WithLabelValues("error").Inc() }

// ColorFailure counts a colour that could not be parsed; role is
// "background" or "foreground".
func (m *Metrics) ColorFailure(role string) {
	m.colorFailures.WithLabelValues(role).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

type Server struct {
	opts    *Opts
	log     *slog.Logger
	handler http.Handler
	server  *http.Server
}

func NewServer(opts *Opts, m *Metrics) *Server {
	return &Server{
		opts:    opts,
		log:     slog.Default(),
		handler: m.Handler(),
	}
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// Run serves /metrics until ctx is cancelled. It returns immediately when
// metrics are disabled.
func (s *Server) Run(ctx context.Context) error {
	if !s.opts.Enabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.handler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving Prometheus metrics", "port", s.opts.Port, "endpoint", "/metrics")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("prometheus server: %w", err)
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info("stopping Prometheus server")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error("Prometheus server forced to shutdown", "error", err)
		return err
	}
	s.log.Info("Prometheus server stopped gracefully")
	return nil
}
