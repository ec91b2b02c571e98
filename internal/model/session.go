package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeviceInfo is the fingerprint of the device a session was created from.
type DeviceInfo struct {
	DeviceID  string
	UserAgent string
	IP        string
	Browser   string
	OS        string
}

// Session records one authenticated device/browser instance for a user.
// A session is bound 1:1 to a refresh token. Sessions are never physically
// deleted while within the retention window; invalidation only flips
// IsActive, so session history stays queryable.
type Session struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Device        DeviceInfo
	RefreshToken  string
	IsActive      bool
	CreatedAt     time.Time
	LastActivity  time.Time
	ExpiresAt     time.Time
	InvalidatedAt *time.Time
}

// SessionStats is a derived read over a user's sessions.
type SessionStats struct {
	ActiveSessions int
	TotalDevices   int
	LastActivity   time.Time
}

// SessionStore tracks one record per authenticated device/session.
// The only state transition is Active -> Invalidated; nothing leaves
// Invalidated.
type SessionStore interface {
	Create(ctx context.Context, session Session) (Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	GetByRefreshToken(ctx context.Context, token string) (Session, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]Session, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
	InvalidateByRefreshToken(ctx context.Context, token string) error
	InvalidateAll(ctx context.Context, userID uuid.UUID) error
	InvalidateOthers(ctx context.Context, userID uuid.UUID, keepID uuid.UUID) error
	// Touch updates LastActivity. Best-effort: a missing session is not an
	// error, access tokens can outlive session tracking.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	// UpdateRefreshToken rebinds the session to a rotated refresh token.
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	Stats(ctx context.Context, userID uuid.UUID) (SessionStats, error)
	// SweepExpired invalidates sessions past their expiry and returns the
	// number of sessions transitioned.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
