// Package apierrors provides shared error types for the iContact client.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key (or app id) is provided.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrMissingCredentials is returned when login credentials are incomplete.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrRetryExhausted is returned once the retry ceiling has been passed.
	ErrRetryExhausted = errors.New("exceeded maximum retry count")

	// ErrUnrecoverable is returned for API errors that cannot be retried.
	ErrUnrecoverable = errors.New("unrecoverable API error")

	// ErrUnauthorized is returned when the service rejects the credentials
	// or denies access to a resource.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when the service reports rate limiting.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMalformedResponse is returned when a response body cannot be parsed.
	ErrMalformedResponse = errors.New("malformed response")
)

// Error codes reported by the service that the pipeline acts on.
const (
	CodeUnauthorized = "401"
	CodeRateLimited  = "503"
	CodeTooMany      = "429"
)

// APIError is an error reported by the service in a response envelope.
type APIError struct {
	// Path is the call path of the failed operation.
	Path string
	// Code is the service error code (v1 error_code, or the HTTP status for v2.2).
	Code string
	// Message is the service error message.
	Message string
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

func (e *APIError) Error() string {
	kind := "error"
	if e.Code == CodeUnauthorized {
		kind = "authentication error"
	}
	if e.Message != "" {
		return fmt.Sprintf("unrecoverable %s for %s: %s - %s", kind, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("unrecoverable %s for %s: %s", kind, e.Path, e.Code)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnrecoverable:
		return true
	case ErrUnauthorized:
		return e.Code == CodeUnauthorized
	case ErrRateLimited:
		return e.Code == CodeRateLimited || e.Code == CodeTooMany
	}
	return false
}

// RetryExhaustedError reports that a call was refused because the retry
// counter passed its ceiling.
type RetryExhaustedError struct {
	Path       string
	MaxRetries int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded maximum retry count (%d) for %s", e.MaxRetries, e.Path)
}

// Is implements errors.Is for sentinel error matching.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError indicates a response body that could not be decoded.
type ParseError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response for %s (status %d): %v", e.Path, e.StatusCode, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
