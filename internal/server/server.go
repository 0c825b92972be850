// Package server is the development server: it serves the generated site,
// injects the live reload client into HTML responses and exposes health and
// metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// DefaultShutdownTimeout bounds graceful shutdown when Options leaves it unset.
const DefaultShutdownTimeout = 5 * time.Second

// ErrRootRequired is returned when no site directory is configured.
var ErrRootRequired = errors.New("server: site root is required")

// Options configures the development server.
type Options struct {
	Addr            string
	Root            string
	LiveReload      bool
	Metrics         http.Handler
	Logger          interfaces.Logger
	ShutdownTimeout time.Duration
	// Status reports extra fields for /healthz, such as the last build time.
	Status func() map[string]any
}

// Server wraps an http.Server with the blog routes.
type Server struct {
	opts   Options
	hub    *Hub
	logger interfaces.Logger
	srv    *http.Server
	start  time.Time
}

// New validates the options and builds the router.
func New(opts Options, hub *Hub) (*Server, error) {
	if opts.Root == "" {
		return nil, ErrRootRequired
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if hub == nil {
		hub = NewHub(logger, nil)
	}
	s := &Server{
		opts:   opts,
		hub:    hub,
		logger: logger,
		start:  time.Now(),
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Router returns the chi router serving every endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	if s.opts.LiveReload {
		r.Handle(LiveReloadPath, s.hub)
	}

	static := newSiteHandler(s.opts.Root, s.opts.LiveReload)
	r.Method(http.MethodGet, "/*", static)
	r.Method(http.MethodHead, "/*", static)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":             "ok",
		"uptime_seconds":     int(time.Since(s.start).Seconds()),
		"livereload":         s.opts.LiveReload,
		"livereload_clients": s.hub.Clients(),
	}
	if s.opts.Status != nil {
		for key, value := range s.opts.Status() {
			payload[key] = value
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("server.healthz.encode_failed", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == LiveReloadPath {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.started", "addr", ln.Addr().String(), "root", s.opts.Root, "livereload", s.opts.LiveReload)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("server.stopped")
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
