// ABOUTME: HTTP server wiring: router, CORS, auth middleware, and endpoint registration
// ABOUTME: Owns the shared dependencies handlers need: store, hub, OTP manager, tokens

package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/patterhq/patter/internal/auth"
	"github.com/patterhq/patter/internal/store"
)

// Server holds the backend's long-lived dependencies and serves the API
// and the live channel.
type Server struct {
	store   store.Store
	hub     *Hub
	otp     *auth.OTPManager
	tokens  *auth.SessionTokens
	origins []string
	logger  *slog.Logger
}

// Options configures optional server behavior.
type Options struct {
	// AllowedOrigins is the CORS allowlist for browser clients. Empty
	// means same-origin only.
	AllowedOrigins []string
}

// New creates a server. Pass nil logger for default.
func New(st store.Store, otp *auth.OTPManager, tokens *auth.SessionTokens, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	return &Server{
		store:   st,
		hub:     NewHub(logger),
		otp:     otp,
		tokens:  tokens,
		origins: opts.AllowedOrigins,
		logger:  logger,
	}
}

// Router builds the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/docs", s.handleDocs)

	r.Post("/api/login", s.handleLogin)
	r.Post("/api/verifyotp", s.handleVerifyOTP)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.tokens))
		r.Get("/api/users", s.handleListUsers)
		r.Get("/api/message/receive", s.handleReceiveMessages)
		r.Post("/api/message/send", s.handleSendMessage)
	})

	// The channel authenticates inside the handler so browser clients can
	// pass the token as a query parameter.
	r.Get("/ws", s.handleWS)

	return r
}
