// Package errors declares the sentinel errors shared across the chat
// service and their mapping to the HTTP edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidIdentity    = fmt.Errorf("invalid identity name")
	ErrEmptyMessage       = fmt.Errorf("empty message")
	ErrWriteFailed        = fmt.Errorf("message write failed")
	ErrReadFailed         = fmt.Errorf("message read failed")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrSessionExpired     = fmt.Errorf("session expired or revoked")
	ErrFileTypeNotAllowed = fmt.Errorf("file type not allowed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("empty censored words")
)

// HTTPStatus translates a domain error into the status code reported by the
// HTTP handlers. Unknown errors map to 500 so internals never leak.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidIdentity), errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTypeNotAllowed):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
