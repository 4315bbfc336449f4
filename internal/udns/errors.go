// Package udns provides an HTTP client for the UltraDNS REST API with
// transparent token refresh, rate-limit retry, and polling of asynchronous
// operations (tasks, locations, and reports).
package udns

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, udns.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("udns: bad request")
	ErrUnauthorized = errors.New("udns: unauthorized")
	ErrForbidden    = errors.New("udns: forbidden")
	ErrNotFound     = errors.New("udns: not found")
	ErrConflict     = errors.New("udns: conflict")
	ErrThrottled    = errors.New("udns: throttled")
	ErrServerError  = errors.New("udns: server error")
)

// Client-side sentinels.
var (
	// ErrForbiddenHeader is returned when a custom header would replace one the
	// pipeline sets itself.
	ErrForbiddenHeader = errors.New("udns: header is set by the client and cannot be overridden")
	// ErrNotLoggedIn is returned when no token pair is available.
	ErrNotLoggedIn = errors.New("udns: not logged in")
	// ErrMissingPassword is returned when a username is given without a password.
	ErrMissingPassword = errors.New("udns: password is required when providing a username")
)

// AuthError reports a failed call to the token endpoint, either the initial
// password grant or a refresh. Body holds the decoded error response.
type AuthError struct {
	StatusCode int
	Code       string
	Message    string
	Body       map[string]any
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("udns: authentication failed: HTTP %d: %s (errorCode %s)", e.StatusCode, e.Message, e.Code)
	}

	return fmt.Sprintf("udns: authentication failed: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *AuthError) Unwrap() error {
	return ErrUnauthorized
}

// RestError wraps a sentinel error with the HTTP status code and the API's
// errorCode/errorMessage pair. Only produced when strict errors are enabled;
// by default non-2xx bodies are returned as data because batch endpoints
// report per-item failures inline.
type RestError struct {
	StatusCode int
	Code       string
	Message    string
	Body       any
	Err        error // sentinel, for errors.Is()
}

func (e *RestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("udns: HTTP %d (errorCode %s): %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("udns: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RestError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// apiErrorFields extracts the error code and message from a decoded error
// body. The API uses errorCode/errorMessage; the token endpoint sometimes
// answers with OAuth-style error/error_description instead.
func apiErrorFields(obj map[string]any) (code, message string) {
	code = scalarString(obj["errorCode"])
	message = scalarString(obj["errorMessage"])

	if code == "" {
		code = scalarString(obj["error"])
	}

	if message == "" {
		message = scalarString(obj["error_description"])
	}

	return code, message
}
