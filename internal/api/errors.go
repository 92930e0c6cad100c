package api

import "github.com/icontact-sdk/client-go/internal/apierrors"

// Errors surfaced by the pipeline. They are defined in apierrors so the root
// package can re-export them without importing api internals.
var (
	ErrMissingAPIKey      = apierrors.ErrMissingAPIKey
	ErrMissingCredentials = apierrors.ErrMissingCredentials
	ErrRetryExhausted     = apierrors.ErrRetryExhausted
	ErrUnrecoverable      = apierrors.ErrUnrecoverable
	ErrUnauthorized       = apierrors.ErrUnauthorized
	ErrRateLimited        = apierrors.ErrRateLimited
	ErrMalformedResponse  = apierrors.ErrMalformedResponse
)

type (
	APIError            = apierrors.APIError
	RetryExhaustedError = apierrors.RetryExhaustedError
	NetworkError        = apierrors.NetworkError
	ParseError          = apierrors.ParseError
)
