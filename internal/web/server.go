package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/faceauth"
	"github.com/kozaktomas/suraksha/internal/web/handlers"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"go.uber.org/zap"
)

// Deps are the backends the server talks to.
type Deps struct {
	Oracle     faceauth.Oracle
	Profiles   database.ProfileWriter
	Identities database.IdentityProvider
	Sessions   database.SessionStore
	PSI        handlers.PSIClient // nil disables the route-safety endpoints
}

// Server represents the web server
type Server struct {
	config         *config.Config
	deps           Deps
	router         *chi.Mux
	httpServer     *http.Server
	flowManager    *handlers.FlowManager
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, port int, host string, deps Deps) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret, deps.Sessions, cfg.Web.SecureCookies)

	flowManager := handlers.NewFlowManager(handlers.FlowDeps{
		Oracle:     deps.Oracle,
		Profiles:   deps.Profiles,
		Identities: deps.Identities,
		Sessions:   sessionManager,
		Settings: faceauth.Settings{
			CaptureDelay:    cfg.Auth.CaptureDelay,
			RetryDelay:      cfg.Auth.RetryDelay,
			DisplayDelay:    cfg.Auth.DisplayDelay,
			MatchBudget:     cfg.Auth.MatchBudget,
			MaxFrameRetries: cfg.Auth.MaxFrameRetries,
		},
		Logger: zap.L().Named("flow"),
	}, cfg.Auth.FlowTTL)

	s := &Server{
		config:         cfg,
		deps:           deps,
		router:         r,
		flowManager:    flowManager,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open; request handlers use chi's Timeout
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and the background sweepers
func (s *Server) Start() error {
	s.flowManager.StartSweeper(constants.FlowSweepInterval)
	s.sessionManager.StartCleanup(constants.SessionCleanupInterval)

	zap.L().Info("starting web server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("shutting down web server")

	s.sessionManager.Stop()
	s.flowManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
