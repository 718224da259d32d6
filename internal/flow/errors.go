// internal/flow/errors.go
package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount rejects non-positive amounts before any network call.
	ErrInvalidAmount = errors.New("flow: amount must be a positive integer")

	// ErrAuth covers HTTP 401/403 from the gateway (bad credentials or
	// insufficient account permissions).
	ErrAuth = errors.New("flow: authentication rejected by gateway")

	// ErrBadRequest covers HTTP 400 (parameters the gateway refused).
	ErrBadRequest = errors.New("flow: gateway rejected request parameters")

	// ErrProtocol means the gateway answered 2xx but the body lacked required
	// fields; a partial success is never surfaced as success.
	ErrProtocol = errors.New("flow: malformed gateway response")
)

// APIError carries the gateway's own error body, wrapped around one of the
// sentinel errors above so callers can branch with errors.Is.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("flow: gateway error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("flow: gateway error %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(statusCode, code int, message string) *APIError {
	e := &APIError{StatusCode: statusCode, Code: code, Message: message}
	switch statusCode {
	case 400:
		e.kind = ErrBadRequest
	case 401, 403:
		e.kind = ErrAuth
	}
	return e
}
