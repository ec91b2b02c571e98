package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/authkeeper-server/internal/model"
)

func TestBlacklistStore_InsertAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewBlacklistStore()

	ok, err := s.IsBlacklisted(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Blacklist(ctx, model.BlacklistEntry{
		Token:         "t1",
		UserID:        uuid.New(),
		ExpiresAt:     time.Now().Add(time.Hour),
		BlacklistedAt: time.Now(),
		Reason:        model.ReasonLogout,
	})
	require.NoError(t, err)

	ok, err = s.IsBlacklisted(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlacklistStore_Idempotent_KeepsEarliest(t *testing.T) {
	ctx := context.Background()
	s := NewBlacklistStore()

	first := time.Now().Add(-time.Minute)
	require.NoError(t, s.Blacklist(ctx, model.BlacklistEntry{
		Token: "t1", BlacklistedAt: first, ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.Blacklist(ctx, model.BlacklistEntry{
		Token: "t1", BlacklistedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	ok, err := s.IsBlacklisted(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlacklistStore_UserRevocation(t *testing.T) {
	ctx := context.Background()
	s := NewBlacklistStore()
	userID := uuid.New()

	_, err := s.GetUserRevocation(ctx, userID)
	require.ErrorIs(t, err, model.ErrNotFound)

	cutoff := time.Now()
	require.NoError(t, s.BlacklistAllForUser(ctx, model.UserRevocation{
		UserID:    userID,
		RevokedAt: cutoff,
		ExpiresAt: cutoff.Add(30 * 24 * time.Hour),
		Reason:    model.ReasonSecurity,
	}))

	got, err := s.GetUserRevocation(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cutoff, got.RevokedAt)

	// An older cutoff must not replace a newer one.
	require.NoError(t, s.BlacklistAllForUser(ctx, model.UserRevocation{
		UserID:    userID,
		RevokedAt: cutoff.Add(-time.Hour),
		ExpiresAt: cutoff.Add(time.Hour),
	}))
	got, err = s.GetUserRevocation(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cutoff, got.RevokedAt)
}

func TestBlacklistStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewBlacklistStore()
	now := time.Now()

	require.NoError(t, s.Blacklist(ctx, model.BlacklistEntry{
		Token: "expired", ExpiresAt: now.Add(-time.Minute), BlacklistedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, s.Blacklist(ctx, model.BlacklistEntry{
		Token: "live", ExpiresAt: now.Add(time.Hour), BlacklistedAt: now,
	}))

	removed, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ok, _ := s.IsBlacklisted(ctx, "expired")
	assert.False(t, ok)
	ok, _ = s.IsBlacklisted(ctx, "live")
	assert.True(t, ok)

	// Second sweep is a no-op.
	removed, err = s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
