// Package middleware provides HTTP middlewares for session authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/apperror"
)

type ctxKey string

const (
	userKey    ctxKey = "user"
	sessionKey ctxKey = "session"
)

// SessionResolver maps a session identifier to the bound user ID.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (string, error)
}

// Cookie describes the session cookie.
type Cookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Read returns the session identifier carried by r, or "".
func (c Cookie) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Set writes the session cookie for id.
func (c Cookie) Set(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		Expires:  time.Now().Add(c.TTL),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the client.
func (c Cookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionAuth resolves the session cookie, if any, and stores the session
// and user IDs in the request context. Requests without a live session pass
// through anonymously; a stale cookie is cleared. Enforcement is left to the
// handlers so each operation reports its own error kind.
func SessionAuth(resolver SessionResolver, cookie Cookie, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := cookie.Read(r)
			if sid == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := resolver.ResolveSession(r.Context(), sid)
			if err != nil {
				if apperror.IsKind(err, apperror.KindAuthentication) {
					cookie.Clear(w)
					next.ServeHTTP(w, r)
					return
				}
				log.Error("session lookup failed", zap.Error(err))
				apperror.Write(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sid)
			ctx = context.WithValue(ctx, userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetSessionIDFromContext extracts the live session ID from the request
// context. Returns an empty string if not found.
func GetSessionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey).(string); ok {
		return s
	}
	return ""
}
