package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facescan/internal/metrics"
	"github.com/kozaktomas/facescan/internal/web/handlers"
	"github.com/kozaktomas/facescan/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	opts := s.deps.Scanner.Options()

	authHandler := handlers.NewAuthHandler(s.deps.Identity, s.sessionManager)
	scansHandler := handlers.NewScansHandler(s.deps.Scanner, s.deps.Identity)
	reportsHandler := handlers.NewReportsHandler(s.deps.Identity, opts.Bands)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery)
	configHandler := handlers.NewConfigHandler(opts, s.deps.ExtractorName, s.deps.GallerySource, s.deps.Gallery)

	// No auth required
	s.router.Get("/health", handlers.HealthCheck)
	s.router.Get("/ready", handlers.NewReadinessHandler(s.deps.Database))
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			// Scans
			r.Post("/scans", scansHandler.Create)
			r.Get("/scans", scansHandler.List)
			r.Get("/scans/{id}", scansHandler.Get)
			r.Delete("/scans", scansHandler.DeleteAll)

			// Report and data export
			r.Get("/report", reportsHandler.Report)
			r.Get("/export", reportsHandler.Export)

			// Gallery
			r.Get("/gallery", galleryHandler.List)
			r.Get("/gallery/{id}/neighbors", galleryHandler.Neighbors)

			r.Get("/config", configHandler.Get)
		})
	})
}
