// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package api wires together the HTTP router, middleware chain, and all
handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/gateway are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sagipkalikasan/bantay/internal/auth"
	"github.com/sagipkalikasan/bantay/internal/gateway"
	"github.com/sagipkalikasan/bantay/internal/platform/config"
	"github.com/sagipkalikasan/bantay/internal/platform/constants"
	"github.com/sagipkalikasan/bantay/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all handler sets the router mounts.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the session lifecycle and user administration routes.
	Auth *auth.Handler

	// Proxy fronts the Content API and the site origin.
	Proxy *gateway.Proxy

	// Events serves the websocket channel carrying queue notifications.
	Events http.HandlerFunc
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, session middleware.SessionState, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(session))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Notification Channel
	// Foreground instances subscribe here for queue lifecycle events.
	r.Get("/ws/events", h.Events)

	// # Application API
	// The request timeout lives here rather than globally so it never cuts
	// the long-lived websocket connection above.
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		api.Mount("/auth", h.Auth.Routes(middleware.RequireRole(auth.RoleAdmin)))

		// Content API proxy. Reads are open (the remote endpoint vets the
		// token inside the envelope); mutations additionally require the
		// gateway session, since queued replays depend on it staying valid.
		api.Route("/content", func(content chi.Router) {
			content.Get("/", h.Proxy.Content)
			content.Head("/", h.Proxy.Content)
			content.Group(func(writes chi.Router) {
				writes.Use(middleware.RequireAuth)
				writes.Post("/", h.Proxy.Content)
				writes.Put("/", h.Proxy.Content)
				writes.Patch("/", h.Proxy.Content)
				writes.Delete("/", h.Proxy.Content)
			})
		})
	})

	// # Site Proxy
	// Everything else is a page, asset, or navigation for the site origin.
	r.NotFound(h.Proxy.Site)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
