package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Authentication error taxonomy. All credential-store and codec failures are
// normalized into these before leaving the service layer.
var (
	ErrInvalidCredentials    = errors.New("email or password incorrect")
	ErrEmailTaken            = errors.New("email already registered")
	ErrUnauthorized          = errors.New("missing or malformed token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	ErrTokenBlacklisted      = errors.New("token blacklisted")
	ErrSessionNotFound       = errors.New("session not found")
)

// RateLimitError is returned when a subject exceeded its allowed attempts.
// RetryAfter tells the caller when the window elapses.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
