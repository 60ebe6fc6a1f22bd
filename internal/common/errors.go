// Package common defines shared constants and sentinel errors used across
// the brainsync server. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Missing or malformed process secrets. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")

	// Session token errors. ErrTokenExpired wraps ErrInvalidToken so that
	// callers only ever need to test for the latter.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

	// Authenticated decryption of a credential envelope failed.
	ErrIntegrity = errors.New("credential integrity check failed")

	// The external identity / file API failed.
	ErrUpstream = errors.New("upstream error")

	// Persisting rotated credentials failed. Logged only.
	ErrReconcile = errors.New("credential reconciliation failed")

	// Identity has no sync target or no stored OAuth credentials.
	ErrNoSyncTarget       = errors.New("no sync target")
	ErrMissingCredentials = errors.New("missing oauth credentials")
)
