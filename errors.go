package icontact

import (
	"errors"
	"fmt"

	"github.com/icontact-sdk/client-go/internal/api"
	"github.com/icontact-sdk/client-go/internal/apierrors"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key (or v2.2 app id) is provided.
	ErrMissingAPIKey = apierrors.ErrMissingAPIKey

	// ErrMissingCredentials is returned when the username or password is
	// missing and no Authenticator was configured.
	ErrMissingCredentials = apierrors.ErrMissingCredentials

	// ErrRetryExhausted is returned once the client's retry counter has
	// passed the configured maximum. Call ResetRetries to recover.
	ErrRetryExhausted = apierrors.ErrRetryExhausted

	// ErrUnrecoverable matches every error reported by the service that the
	// client does not retry.
	ErrUnrecoverable = apierrors.ErrUnrecoverable

	// ErrUnauthorized matches service errors with code 401 that could not be
	// fixed by logging in again.
	ErrUnauthorized = apierrors.ErrUnauthorized

	// ErrRateLimited matches rate-limit errors.
	ErrRateLimited = apierrors.ErrRateLimited

	// ErrMalformedResponse is returned when a response cannot be parsed.
	ErrMalformedResponse = apierrors.ErrMalformedResponse
)

// IContactError is implemented by all SDK errors.
type IContactError interface {
	error
	IContactError() // marker method
}

// APIError is an error reported by the service that the client does not
// retry.
type APIError struct {
	// Path is the call path of the failed operation.
	Path string
	// Code is the service error code. For the v2.2 API it is the HTTP status.
	Code string
	// Message is the service error message.
	Message string
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

func (e *APIError) Error() string {
	kind := "error"
	if e.Code == apierrors.CodeUnauthorized {
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
		return e.Code == apierrors.CodeUnauthorized
	case ErrRateLimited:
		return e.Code == apierrors.CodeRateLimited || e.Code == apierrors.CodeTooMany
	}
	return false
}

// IContactError implements the IContactError interface.
func (e *APIError) IContactError() {}

// RetryExhaustedError reports a call refused because the retry counter
// passed its ceiling.
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

// IContactError implements the IContactError interface.
func (e *RetryExhaustedError) IContactError() {}

// NetworkError represents a network-level failure. It is never retried.
type NetworkError struct {
	Err error
	// URL is the request URL without its query string.
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IContactError implements the IContactError interface.
func (e *NetworkError) IContactError() {}

// ParseError reports a response that could not be decoded. It is never
// retried.
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

// IContactError implements the IContactError interface.
func (e *ParseError) IContactError() {}

// wrapError converts internal API errors to public errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Path:       apiErr.Path,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			StatusCode: apiErr.StatusCode,
		}
	}

	var exhausted *api.RetryExhaustedError
	if errors.As(err, &exhausted) {
		return &RetryExhaustedError{Path: exhausted.Path, MaxRetries: exhausted.MaxRetries}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{Err: netErr.Err, URL: netErr.URL}
	}

	var parseErr *api.ParseError
	if errors.As(err, &parseErr) {
		return &ParseError{Path: parseErr.Path, StatusCode: parseErr.StatusCode, Err: parseErr.Err}
	}

	return err
}

// malformed builds the error returned when a successful response lacks a
// field a mapper requires.
func malformed(path string, env *api.Envelope, format string, args ...any) error {
	status := 0
	if env != nil {
		status = env.StatusCode
	}
	return &ParseError{Path: path, StatusCode: status, Err: fmt.Errorf(format, args...)}
}
