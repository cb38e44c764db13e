package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/suraksha/internal/web/handlers"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
)

// requestTimeout bounds every non-streaming request. A signup makes up to
// two oracle calls plus the store writes.
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.sessionManager, s.deps.Profiles)
	flowsHandler := handlers.NewFlowsHandler(s.flowManager, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// SSE streams are long-lived and skip the request timeout.
		r.Get("/flows/{flowId}/events", flowsHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/config", configHandler.Get)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/status", authHandler.Status)

			// Authentication flows
			r.Post("/flows", flowsHandler.Create)
			r.Get("/flows/{flowId}", flowsHandler.Get)
			r.Delete("/flows/{flowId}", flowsHandler.Delete)
			r.Post("/flows/{flowId}/frames", flowsHandler.Frame)
			r.Post("/flows/{flowId}/camera", flowsHandler.Camera)
			r.Put("/flows/{flowId}/view", flowsHandler.SetView)
			r.Post("/flows/{flowId}/login", flowsHandler.Login)
			r.Post("/flows/{flowId}/signup", flowsHandler.Signup)
			r.Post("/flows/{flowId}/face-signup", flowsHandler.FaceSignup)
			r.Post("/flows/{flowId}/session", flowsHandler.Session)

			// Everything else requires an authenticated session
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(s.sessionManager))

				r.Get("/me", authHandler.Me)

				if s.deps.PSI != nil {
					psiHandler := handlers.NewPSIHandler(s.deps.PSI)
					r.Get("/psi/health", psiHandler.Health)
					r.Post("/psi/predict", psiHandler.Predict)
					r.Post("/psi/location", psiHandler.Location)
					r.Post("/psi/route", psiHandler.Route)
				}
			})
		})
	})
}
