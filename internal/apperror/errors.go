// Package apperror provides the error taxonomy of the authentication API.
// Each error carries a stable machine-readable kind, the HTTP status it maps
// to, and a message that is safe to show to the client.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError.
type Kind string

const (
	// KindValidation marks malformed or missing input.
	KindValidation Kind = "validation_error"
	// KindConflict marks a duplicate unique key.
	KindConflict Kind = "conflict"
	// KindAuthentication marks bad credentials or a missing session.
	KindAuthentication Kind = "unauthenticated"
	// KindAuthorization marks an operation not permitted in the current state.
	KindAuthorization Kind = "unauthorized"
	// KindDependency marks a store or provider failure.
	KindDependency Kind = "dependency_error"
	// KindNotFound marks an unknown route.
	KindNotFound Kind = "not_found"
	// KindMethodNotAllowed marks a known route called with the wrong method.
	KindMethodNotAllowed Kind = "method_not_allowed"
)

// AppError is the error type returned by the service layer.
type AppError struct {
	// Kind is the machine-readable classifier.
	Kind Kind
	// Code is the HTTP status code.
	Code int
	// Message is safe to expose to the client.
	Message string
	// Internal holds the underlying error for logging. Never exposed to the client.
	Internal error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidation creates a 400 validation error.
func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: http.StatusBadRequest, Message: message}
}

// NewConflict creates a conflict error. It maps to 400 to stay compatible
// with existing clients that expect "username already taken" as a bad request.
func NewConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: http.StatusBadRequest, Message: message}
}

// NewAuthentication creates a 401 authentication error.
func NewAuthentication(message string) *AppError {
	return &AppError{Kind: KindAuthentication, Code: http.StatusUnauthorized, Message: message}
}

// NewAuthorization creates a 401 authorization error.
func NewAuthorization(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Code: http.StatusUnauthorized, Message: message}
}

// NewUnsupportedMediaType creates a 415 validation error for a request body
// that is not JSON.
func NewUnsupportedMediaType(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: http.StatusUnsupportedMediaType, Message: message}
}

// NewNotFound creates a 404 error for an unknown route.
func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: http.StatusNotFound, Message: message}
}

// NewMethodNotAllowed creates a 405 error.
func NewMethodNotAllowed(message string) *AppError {
	return &AppError{Kind: KindMethodNotAllowed, Code: http.StatusMethodNotAllowed, Message: message}
}

// NewDependency creates a 500 error wrapping a store or provider failure.
// The client only sees a generic message.
func NewDependency(err error) *AppError {
	return &AppError{
		Kind:     KindDependency,
		Code:     http.StatusInternalServerError,
		Message:  "an unexpected error occurred",
		Internal: err,
	}
}

// As extracts an *AppError from err. Any other error is reported as a
// dependency failure.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewDependency(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Response is the JSON body of every failed request.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Write maps err onto its status code and writes the structured body.
// The internal cause is never written.
func Write(w http.ResponseWriter, err error) {
	appErr := As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = json.NewEncoder(w).Encode(Response{Error: string(appErr.Kind), Message: appErr.Message})
}
