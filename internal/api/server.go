// Package api provides the local control API for inspecting saves, backups and session state.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/guard"
	"github.com/savekeeperapp/savekeeper/internal/ratelimit"
	"github.com/savekeeperapp/savekeeper/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	session   *guard.Session
	store     *backup.Store
	validator *validation.Validator
	limiter   *ratelimit.KeyedLimiter
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new control API server with all routes configured.
func NewServer(session *guard.Session, store *backup.Store, validator *validation.Validator, logger *slog.Logger) *Server {
	s := &Server{
		session:   session,
		store:     store,
		validator: validator,
		limiter:   ratelimit.New(10, 30),
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// The API binds to localhost; CORS only matters for browser
	// frontends served from another local port.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Use(s.rateLimit)
}

// rateLimit rejects clients that exceed the per-address token bucket.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.RemoteAddr) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.handleGetSession)
		r.Get("/saves", s.handleListSaves)
		r.Get("/saves/{name}/backups", s.handleListBackups)
		r.Post("/restore", s.handleRestore)
	})
}
