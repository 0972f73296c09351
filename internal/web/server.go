// Package web serves the wedding gallery API and single-page frontend.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/facegallery/facegallery/internal/config"
	"github.com/facegallery/facegallery/internal/gallery"
	"github.com/facegallery/facegallery/internal/source"
	"github.com/facegallery/facegallery/internal/web/handlers"
	"github.com/facegallery/facegallery/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	holder         *gallery.Holder
	names          *gallery.Names
	src            source.Source
	run            handlers.RunFunc
	jobManager     *handlers.JobManager
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server. run executes a processing job and is
// expected to swap the holder's projection on success.
func NewServer(cfg *config.Config, holder *gallery.Holder, names *gallery.Names, src source.Source, run handlers.RunFunc) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:         cfg,
		router:         r,
		holder:         holder,
		names:          names,
		src:            src,
		run:            run,
		jobManager:     handlers.NewJobManager(),
		sessionManager: middleware.NewSessionManager(cfg.Web.SessionSecret),
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for processing and full-size photos
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
