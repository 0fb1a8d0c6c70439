package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel errors for the domain taxonomy. Wrap them with context via
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrNotFound marks a missing record (profile, recommendation list).
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument marks rejected input (self-follow, bad filter).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRetrievalFailed marks a candidate retrieval where every
	// strategy failed. Callers treat it as "zero candidates".
	ErrRetrievalFailed = errors.New("candidate retrieval failed")

	// ErrConflict marks a follow-toggle transaction that kept colliding
	// past the retry budget.
	ErrConflict = errors.New("transaction conflict")

	// ErrProviderUnavailable marks an unreachable embedding provider.
	// The semantic strategy degrades instead of failing the pipeline.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks a follow-toggle storm on one actor.
	ErrRateLimited = errors.New("rate limited")
)

// InvalidArgument builds a wrapped ErrInvalidArgument with a message.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidArgument)
}

// NotFound builds a wrapped ErrNotFound with a message.
func NotFound(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrNotFound)
}

// HTTPStatus converts repo/service errors into an HTTP status code.
// Keeps handlers clean by centralizing error mapping.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, ErrConflict):
		return http.StatusConflict

	case errors.Is(err, ErrProviderUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return 499 // client closed request

	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for an error. Internal
// detail is never leaked to end users.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return err.Error()
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return "record not found"
	case errors.Is(err, ErrRateLimited):
		return "too many requests"
	case errors.Is(err, ErrConflict):
		return "please retry"
	default:
		return "internal error"
	}
}
