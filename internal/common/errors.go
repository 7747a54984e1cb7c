// Package common defines shared constants and sentinel errors used across
// the processing backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrorDependency marks failures of external collaborators (KMS, object
	// store, secret store, database, model API). Surfaced to callers as a
	// generic retryable failure.
	ErrorDependency = errors.New("external dependency failure")

	// Envelope integrity errors. Always fatal to the operation; decryption
	// never degrades to an empty result.
	ErrorInvalidEnvelope  = errors.New("invalid envelope")
	ErrorDecryptionFailed = errors.New("decryption failed")

	// Job lifecycle errors.
	ErrorInvalidTransition = errors.New("invalid status transition")
	ErrorRetryExhausted    = errors.New("retry limit reached")
	ErrorResultNotReady    = errors.New("result not ready")

	// Chat job id validation.
	ErrorInvalidJobIDFormat = errors.New("invalid job id format")
	ErrorJobExpired         = errors.New("job expired")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
