package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. Credentials and TOTP codes fit
// comfortably.
const maxBodyBytes = 4 << 10

// messageResponse is the body of acknowledgements without payload.
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an apperror.Response. Dependency failures are
// logged with their internal cause, which never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	appErr := apperror.As(err)
	if appErr.Kind == apperror.KindDependency {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(appErr.Internal),
		)
	}
	apperror.Write(w, appErr)
}

// decodeJSON reads at most maxBodyBytes of the request body into v. An
// empty body leaves v zeroed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewValidation("request body too large")
		}
		return apperror.NewValidation("invalid request")
	}
	return nil
}
