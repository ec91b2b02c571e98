// Package memory provides the default in-memory implementations of the
// registry stores. A deployment can substitute durable implementations
// (see repository/postgres) without changing the service contracts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.RevocationStore = (*BlacklistStore)(nil)

// BlacklistStore is an in-memory RevocationStore.
type BlacklistStore struct {
	mu     sync.RWMutex
	tokens map[string]model.BlacklistEntry
	users  map[uuid.UUID]model.UserRevocation
}

// NewBlacklistStore returns an empty in-memory revocation registry.
func NewBlacklistStore() *BlacklistStore {
	return &BlacklistStore{
		tokens: make(map[string]model.BlacklistEntry),
		users:  make(map[uuid.UUID]model.UserRevocation),
	}
}

// Blacklist inserts an entry. A repeated insert for the same token keeps the
// earliest BlacklistedAt.
func (s *BlacklistStore) Blacklist(ctx context.Context, entry model.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[entry.Token]; ok {
		if existing.BlacklistedAt.Before(entry.BlacklistedAt) {
			return nil
		}
	}
	s.tokens[entry.Token] = entry
	return nil
}

// IsBlacklisted reports whether the token has an entry.
func (s *BlacklistStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tokens[token]
	return ok, nil
}

// BlacklistAllForUser records a user-wide revocation cutoff. A later cutoff
// replaces an earlier one.
func (s *BlacklistStore) BlacklistAllForUser(ctx context.Context, revocation model.UserRevocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[revocation.UserID]; ok {
		if existing.RevokedAt.After(revocation.RevokedAt) {
			return nil
		}
	}
	s.users[revocation.UserID] = revocation
	return nil
}

// GetUserRevocation returns the user-wide cutoff, or ErrNotFound.
func (s *BlacklistStore) GetUserRevocation(ctx context.Context, userID uuid.UUID) (model.UserRevocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revocation, ok := s.users[userID]
	if !ok {
		return model.UserRevocation{}, model.ErrNotFound
	}
	return revocation, nil
}

// Sweep drops entries whose expiry has passed. Single linear pass over each
// map so concurrent lookups are not held up for longer than one traversal.
func (s *BlacklistStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.tokens {
		if !entry.ExpiresAt.After(now) {
			delete(s.tokens, token)
			removed++
		}
	}
	for userID, revocation := range s.users {
		if !revocation.ExpiresAt.After(now) {
			delete(s.users, userID)
			removed++
		}
	}
	return removed, nil
}
