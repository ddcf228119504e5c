// Package api provides the HTTP request pipeline for the GotMail REST
// service: authenticated and unauthenticated JSON calls, multipart binary
// upload, and error classification.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for pipeline failure classification.
// Use errors.Is(err, api.ErrUnauthorized) to check.
var (
	// ErrInvalidArgument indicates a caller contract violation, e.g. a
	// malformed binary payload selection. No request is sent.
	ErrInvalidArgument = errors.New("api: invalid argument")

	// ErrNoToken indicates an authenticated call was attempted while the
	// token source had no session token.
	ErrNoToken = errors.New("api: not logged in")

	// ErrNetwork indicates a transport-level failure (timeout, DNS,
	// connection reset) before any HTTP status was received.
	ErrNetwork = errors.New("api: network error")

	// ErrDecode indicates the response body was not valid JSON.
	ErrDecode = errors.New("api: decoding response")
)

// Sentinel errors for HTTP status code classification.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrServerError  = errors.New("api: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the raw
// response body for debugging.
type APIError struct {
	StatusCode int
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
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
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
