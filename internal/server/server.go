// Package server exposes the render pipeline as a stateless HTTP service.
// Volumes arrive as multipart uploads and leave as PNG slices, zip
// archives, or JSON statistics; nothing is kept between requests apart
// from the optional artifact cache.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"zcomposite/pkg/cache"
	"zcomposite/pkg/composite"
	"zcomposite/pkg/normalize"
)

// Options configures the HTTP service.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// MaxUploadBytes bounds the size of an uploaded volume.
	MaxUploadBytes int64
	// Workers is the per-stage goroutine count handed to the pipeline.
	Workers int
	// PreviewMaxEdge caps the preview size a request may ask for.
	PreviewMaxEdge int
	// DefaultWindow applies to channels without an explicit window.
	DefaultWindow normalize.Window
	// Palette colors channels without an explicit color.
	Palette []composite.Color
	// Logger receives request and render logs. Nil uses the default logger.
	Logger *log.Logger
	// Cache stores encoded artifacts keyed by upload bytes and parameters.
	Cache cache.Cache
}

// Server answers render and inspection requests over HTTP.
type Server struct {
	opts   Options
	logger *log.Logger
	store  cache.Cache
}

// New creates a Server, filling unset options with usable defaults.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 256 << 20
	}
	if opts.DefaultWindow == (normalize.Window{}) {
		opts.DefaultWindow = normalize.DefaultWindow
	}
	if len(opts.Palette) == 0 {
		opts.Palette = composite.DefaultPalette()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	store := opts.Cache
	if store == nil {
		store = cache.NullCache{}
	}

	return &Server{opts: opts, logger: logger, store: store}
}

// Router assembles the routes and middleware of the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/render", s.handleRender)
	r.Post("/inspect", s.handleInspect)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Router(),
		// Keep slow or idle clients from holding goroutines forever.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// logRequests writes one log line per request with status and timing.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}
