package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facegallery/facegallery/internal/gallery"
	"github.com/facegallery/facegallery/internal/pipeline"
	"github.com/facegallery/facegallery/internal/web/handlers"
	"github.com/facegallery/facegallery/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	thumbs := gallery.NewThumbnailer(s.src, s.config.Thumbnail.Size, s.config.Thumbnail.Padding)

	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager)
	peopleHandler := handlers.NewPeopleHandler(s.holder, s.names, thumbs)
	photosHandler := handlers.NewPhotosHandler(s.holder, s.src)
	statsHandler := handlers.NewStatsHandler(s.holder, s.names)
	processHandler := handlers.NewProcessHandler(s.jobManager, s.run, pipeline.Options{
		Concurrency:    4,
		Detector:       s.config.Detector.Kind,
		Jitter:         s.config.Detector.Jitter,
		Tolerance:      s.config.Cluster.Tolerance,
		MinClusterSize: s.config.Cluster.MinClusterSize,
	})

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Everything else sits behind the access code gate when one is set.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager, s.config.Web.AccessCode != ""))

			// People
			r.Get("/people", peopleHandler.List)
			r.Get("/people/{id}", peopleHandler.Get)
			r.Get("/people/{id}/photos", peopleHandler.Photos)
			r.Get("/people/{id}/thumb", peopleHandler.Thumb)
			r.Put("/people/{id}/name", peopleHandler.UpdateName)

			// Photos (IDs carry path separators, image routes use ?id=)
			r.Get("/photos", photosHandler.List)
			r.Get("/photo", photosHandler.Get)
			r.Get("/photo/image", photosHandler.Image)
			r.Get("/photos/similar", photosHandler.Similar)

			// Processing (long-running)
			r.Post("/process", processHandler.Start)
			r.Get("/process/{jobID}", processHandler.Status)

			// Stats
			r.Get("/stats", statsHandler.Get)
		})
	})

	// Serve the SPA shell for everything else.
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves a placeholder page until the frontend bundle is wired in.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Face Gallery</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Face Gallery</h1>
        <p>Browse wedding photos by the people in them.</p>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
