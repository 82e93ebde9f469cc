// Package web serves a small read-only HTTP API for inspecting the daemon.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nabeeladzan/lxfu/internal/verify"
)

// StatusSource exposes the verification session state.
type StatusSource interface {
	State() verify.State
	Owner() string
	RunID() string
	LastStatus() (verify.Status, string)
}

// ProfileSource loads all enrolled profiles.
type ProfileSource interface {
	GetAll() (map[string][][]float32, error)
}

// Server represents the introspection web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	status     StatusSource
	profiles   ProfileSource
	logger     *slog.Logger
}

// NewServer creates a new introspection server listening on addr.
func NewServer(addr string, status StatusSource, profiles ProfileSource, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		status:   status,
		profiles: profiles,
		logger:   logger,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting introspection server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down introspection server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
