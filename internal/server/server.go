package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/schedlab/internal/policy"
	"github.com/me/schedlab/internal/recorder"
)

// Source exposes the pieces of a running benchmark the status API reads.
// Everything is read-only: the API observes the run, it never mutates
// scheduler state. Adaptive is nil for runs of the other policies.
type Source struct {
	RunID     string
	Policy    string
	Total     int
	StartedAt time.Time
	Recorder  *recorder.Recorder
	Adaptive  *policy.Adaptive
}

// Server serves the live status API for one run.
type Server struct {
	router chi.Router
	logger *slog.Logger
	src    Source
	srv    *http.Server
}

// New creates a Server with all routes registered.
func New(src Source, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With("component", "status-api"),
		src:    src,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware(s.logger))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/throughput", s.handleThroughput)
	})
}

// ServeHTTP implements http.Handler, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves the API on addr in a background goroutine.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("status API listening", "addr", addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status API stopped", "error", err)
		}
	}()
}

// Shutdown stops the API, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
