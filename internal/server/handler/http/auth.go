// Package http provides the HTTP handlers and router of the authentication API.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/middleware"
	"github.com/atinyakov/authkeeper/internal/models"
)

// AuthService defines the authentication operations
// required by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password, priorSessionID string) (*models.Session, models.UserView, error)
	Status(ctx context.Context, userID string) (models.UserView, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandler handles HTTP requests for registration, login, status and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Cookie describes the session cookie issued on login.
	Cookie middleware.Cookie
	// Log receives dependency failures.
	Log *zap.Logger
}

// CredentialsRequest represents the JSON payload for registration and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse is returned by login and status.
type userResponse struct {
	Message string `json:"message"`
	models.UserView
}

func (h *AuthHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Register handles POST /register. Both fields are required; a taken
// username is reported as a conflict.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}

	if _, err := h.AuthService.Register(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered successfully"})
}

// Login handles POST /login. On success the session cookie is set and the
// public user fields are returned.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}

	prior := middleware.GetSessionIDFromContext(r.Context())
	sess, view, err := h.AuthService.Login(r.Context(), req.Username, req.Password, prior)
	if err != nil {
		writeError(w, r, h.logger(), err)
		return
	}

	h.Cookie.Set(w, sess.ID)
	writeJSON(w, http.StatusOK, userResponse{Message: "User logged in successfully", UserView: view})
}

// Status handles GET /status.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	view, err := h.AuthService.Status(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: "User is authenticated", UserView: view})
}

// Logout handles POST /logout and expires the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.GetSessionIDFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}
	h.Cookie.Clear(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "User logged out successfully"})
}
