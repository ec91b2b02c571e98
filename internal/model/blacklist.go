package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BlacklistReason describes why a token was revoked before its natural expiry.
type BlacklistReason string

const (
	ReasonLogout   BlacklistReason = "logout"
	ReasonSecurity BlacklistReason = "security"
	ReasonExpired  BlacklistReason = "expired"
	ReasonRotated  BlacklistReason = "rotated"
)

// BlacklistEntry marks a single token as revoked. ExpiresAt mirrors the
// token's natural expiry so the entry can be dropped once the token would
// have expired anyway.
type BlacklistEntry struct {
	Token         string
	UserID        uuid.UUID
	ExpiresAt     time.Time
	BlacklistedAt time.Time
	Reason        BlacklistReason
}

// UserRevocation marks every token of a user issued before RevokedAt as
// invalid. Individual access tokens are not enumerable from the registry
// alone, so the cutoff is checked against token claims at verification time.
type UserRevocation struct {
	UserID    uuid.UUID
	RevokedAt time.Time
	ExpiresAt time.Time
	Reason    BlacklistReason
}

// RevocationStore tracks blacklisted tokens until their natural expiry.
type RevocationStore interface {
	// Blacklist inserts an entry. Inserting the same token twice is a no-op
	// that retains the earliest BlacklistedAt.
	Blacklist(ctx context.Context, entry BlacklistEntry) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	// BlacklistAllForUser records a user-wide revocation cutoff. Only correct
	// when combined with SessionStore.InvalidateAll for the same user.
	BlacklistAllForUser(ctx context.Context, revocation UserRevocation) error
	// GetUserRevocation returns the latest user-wide cutoff, or ErrNotFound.
	GetUserRevocation(ctx context.Context, userID uuid.UUID) (UserRevocation, error)
	// Sweep removes entries whose ExpiresAt is not after now and returns the
	// number removed. Sweeping twice in a row is a no-op on the second call.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
