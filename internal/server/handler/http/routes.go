package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the authentication API.
//
// Routes:
//
//	POST     /api/auth/register   → authHandler.Register
//	POST     /api/auth/login      → authHandler.Login
//	GET      /api/auth/status     → authHandler.Status
//	POST     /api/auth/logout     → authHandler.Logout
//	POST     /api/auth/2fa/setup  → mfaHandler.Setup
//	POST     /api/auth/2fa/verify → mfaHandler.Verify
//	GET|POST /api/auth/2fa/reset  → mfaHandler.Reset
//	GET      /api/healthz
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. recoverer, which reports panics as a dependency error
//  4. requireJSON, requests with a body only
//  5. SessionAuth on /api/auth, which binds the session cookie to a user
//
// Every failure, including unknown routes and wrong methods, is written as
// an apperror.Response.
func NewRouter(
	authHandler *AuthHandler,
	mfaHandler *MFAHandler,
	sessions middleware.SessionResolver,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(recoverer(logger))
	r.Use(requireJSON(logger))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.SessionAuth(sessions, authHandler.Cookie, logger))

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Get("/status", authHandler.Status)
			r.Post("/logout", authHandler.Logout)

			r.Route("/2fa", func(r chi.Router) {
				r.Post("/setup", mfaHandler.Setup)
				r.Post("/verify", mfaHandler.Verify)
				r.Get("/reset", mfaHandler.Reset)
				r.Post("/reset", mfaHandler.Reset)
			})
		})
	})

	return r
}
