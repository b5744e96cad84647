package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the transport layer.
type Kind uint8

const (
	// Upstream is a datastore, auth provider or LLM failure. It is also the
	// kind of any error that is not an *Error.
	Upstream Kind = iota
	Validation
	NotFound
	Unauthorized
	Forbidden
	Deactivated
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Deactivated:
		return "deactivated"
	case RateLimited:
		return "rate_limited"
	default:
		return "upstream"
	}
}

// Error is the structured error passed from services to handlers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and client-facing message to err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) *Error {
	return New(Forbidden, fmt.Sprintf(format, args...))
}

// UpstreamErr wraps a dependency failure. The message is what the client sees,
// err is only logged.
func UpstreamErr(message string, err error) *Error {
	return Wrap(Upstream, message, err)
}

var (
	ErrUnauthenticated  = New(Unauthorized, "Authentication required")
	ErrInvalidToken     = New(Unauthorized, "Invalid or expired token")
	ErrDeactivated      = New(Deactivated, "Account is deactivated. Contact your administrator.")
	ErrInsufficientRole = New(Forbidden, "Insufficient permissions")
)

// KindOf reports the kind of err, defaulting to Upstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Upstream
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden, Deactivated:
		return http.StatusForbidden
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
