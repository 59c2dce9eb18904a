// Package apperr provides standardized domain error types for the
// application. Domain services return these typed errors, and the HTTP layer
// maps them to appropriate status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflict with existing state.
	KindConflict
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindUnavailable indicates an external provider was unreachable or
	// returned a failure.
	KindUnavailable
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Sentinel errors for the pipeline failure taxonomy. Services wrap these so
// callers can classify outcomes with errors.Is.
var (
	// ErrTenantResolutionMiss means no team/agent could be derived for an
	// inbound envelope.
	ErrTenantResolutionMiss = errors.New("tenant resolution miss")
	// ErrClientNotFound means the sender has no client record and
	// auto-creation is disabled.
	ErrClientNotFound = errors.New("client not found")
	// ErrNoEmailInPayload means a booking payload carried no attendee email.
	ErrNoEmailInPayload = errors.New("no email in payload")
	// ErrAIProviderFailure means the completion boundary failed or returned
	// nothing usable.
	ErrAIProviderFailure = errors.New("ai provider failure")
	// ErrTransportFailure means the outbound mail transport rejected the send.
	ErrTransportFailure = errors.New("transport failure")
	// ErrStoreUnavailable means the persistent store cannot be used; this is
	// the only class that may surface as a request failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new Error wrapping an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Message: msg, Op: op, Err: err}
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// BadRequest creates a bad-request error.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// StoreUnavailable wraps a persistence error into the one class allowed to
// propagate out of webhook handlers.
func StoreUnavailable(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "store unavailable", Op: op, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
}
