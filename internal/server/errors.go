package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/codemap/internal/apperr"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// retryAfterSeconds is advertised while the corpus is loading.
const retryAfterSeconds = 5

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotInitialized:
		return http.StatusServiceUnavailable
	case apperr.KindNoData:
		return http.StatusNotFound
	case apperr.KindDimensionMismatch:
		return http.StatusUnprocessableEntity
	case apperr.KindCollaboratorParse:
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nginx's convention.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable error field of a response.
func errorCode(err error) string {
	var verr *ErrValidation
	if errors.As(err, &verr) {
		return "invalid_request"
	}
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal_error"
}
