package polyclob

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when an authenticated operation is
	// attempted before Authenticate has succeeded.
	ErrUnauthenticated = errors.New("client is not authenticated")

	// ErrNotBuilder is returned when a builder operation is attempted
	// before PromoteToBuilder has succeeded.
	ErrNotBuilder = errors.New("client has no builder credentials")
)

// InvalidOrderError represents a malformed order intent. It is raised
// before any network access is attempted and is never retried.
type InvalidOrderError struct {
	Message string
}

func (e *InvalidOrderError) Error() string {
	return e.Message
}

// AuthenticationError represents a failed L1 credential handshake.
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// AuthorizationError represents an operation attempted in the wrong
// authentication state. It is purely local: no request is sent.
type AuthorizationError struct {
	Operation string
	Cause     error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Cause
}

// HTTPError represents a non-2xx response from the CLOB API. The method,
// path and body are kept so callers can diagnose without re-deriving the
// request.
type HTTPError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// SigningError represents a refusal or failure of the wallet signing
// capability. It is fatal to the construction attempt that raised it.
type SigningError struct {
	Message string
	Cause   error
}

func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SigningError) Unwrap() error {
	return e.Cause
}
