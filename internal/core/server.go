// Package core provides the HTTP chassis for the invoicing dashboard API.
// It owns the chi router and enforces cross-cutting concerns -- panic
// recovery, request logging, request IDs, the per-request read cache, and
// session resolution -- before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicedash/internal/config"
	"invoicedash/internal/types"
)

// SessionResolver resolves an opaque session token to an identity.
// Implemented by auth.SessionStore; injected for testability.
type SessionResolver interface {
	Resolve(token string) (types.Identity, bool)
}

// Server encapsulates the router and shared dependencies, allowing
// injection during testing and distinct wiring per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Sessions  SessionResolver

	// RouteRegistrars are mounted under the API root by MountRoutes.
	RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes the server chassis. The caller mounts routes via
// MountRoutes after registering handlers; the separation lets tests
// customize registration.
func NewServer(cfg *config.Config, sessions SessionResolver, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Sessions:  sessions,
		router:    chi.NewRouter(),
	}, nil
}

// MountRoutes installs the middleware chain and all registered routes.
// Recoverer is outermost so every panic is caught.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(RequestCache)
	s.router.Use(s.ResolveSession)

	s.router.Get("/health", s.handleHealth)

	for _, register := range s.RouteRegistrars {
		register(s.router)
	}
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown performs graceful termination of server-owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown complete")
	return nil
}
