package http

import (
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/apperror"
)

// requireJSON rejects requests that carry a body with a media type other
// than application/json. Bodiless requests pass.
func requireJSON(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				writeError(w, r, log, apperror.NewUnsupportedMediaType("request body must be application/json"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recoverer turns a handler panic into a logged dependency error.
func recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				apperror.Write(w, apperror.NewDependency(nil))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	apperror.Write(w, apperror.NewNotFound("route not found"))
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apperror.Write(w, apperror.NewMethodNotAllowed("method not allowed"))
}
