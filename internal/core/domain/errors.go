package domain

import (
	"errors"
	"fmt"
	"time"
)

// Credential and account errors. ErrInvalidCredentials is deliberately shared
// between "user not found" and "wrong password" so account existence never
// leaks through the login path.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// Token errors. Each verification failure mode is a distinct sentinel so the
// transport layer can tell clients whether a refresh is worth attempting.
var (
	ErrTokenMalformed  = errors.New("malformed token")
	ErrTokenSignature  = errors.New("invalid token signature")
	ErrTokenExpired    = errors.New("token expired")
	ErrUnknownSubject  = errors.New("token subject no longer exists")
	ErrNotRefreshToken = errors.New("not a refresh token")
)

// Request-level errors.
var (
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("access forbidden")
	ErrValidation   = errors.New("validation failed")

	// ErrStoreUnavailable marks credential-store or signing failures that the
	// request cannot recover from; surfaced as 503, never retried internally.
	ErrStoreUnavailable = errors.New("upstream store unavailable")
)

// RateLimitedError reports a blocked request together with the remaining
// window time, so the HTTP layer can emit 429 with a Retry-After hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ValidationError wraps ErrValidation with a client-safe message.
func ValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
