package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory SessionStore. Sessions are kept after
// invalidation so history stays queryable; only the sweep of the byToken
// index ever forgets a refresh-token binding.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]model.Session
	byToken  map[string]uuid.UUID
}

// NewSessionStore returns an empty in-memory session registry.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]model.Session),
		byToken:  make(map[string]uuid.UUID),
	}
}

// Create always creates a new session, never merging with an existing one
// even for the same device. One login = one session.
func (s *SessionStore) Create(ctx context.Context, session model.Session) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	s.sessions[session.ID] = session
	if session.RefreshToken != "" {
		s.byToken[session.RefreshToken] = session.ID
	}
	return session, nil
}

// GetByID returns a session by ID, or ErrNotFound.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.Session{}, model.ErrNotFound
	}
	return session, nil
}

// GetByRefreshToken returns the session bound to the refresh token, or ErrNotFound.
func (s *SessionStore) GetByRefreshToken(ctx context.Context, token string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return model.Session{}, model.ErrNotFound
	}
	return s.sessions[id], nil
}

// ListActive returns the user's active sessions.
func (s *SessionStore) ListActive(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []model.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			active = append(active, session)
		}
	}
	return active, nil
}

// Invalidate transitions a session to inactive. Invalidated is terminal.
func (s *SessionStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidateLocked(id, time.Now())
}

// InvalidateByRefreshToken invalidates the session bound to the token.
// An unknown token maps to ErrNotFound so callers can treat it as a no-op.
func (s *SessionStore) InvalidateByRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[token]
	if !ok {
		return model.ErrNotFound
	}
	return s.invalidateLocked(id, time.Now())
}

// InvalidateAll invalidates every active session of the user.
func (s *SessionStore) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			_ = s.invalidateLocked(id, now)
		}
	}
	return nil
}

// InvalidateOthers invalidates every active session of the user except keepID.
func (s *SessionStore) InvalidateOthers(ctx context.Context, userID uuid.UUID, keepID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if session.UserID == userID && session.IsActive && id != keepID {
			_ = s.invalidateLocked(id, now)
		}
	}
	return nil
}

// Touch updates LastActivity. Missing sessions are not an error.
func (s *SessionStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	session.LastActivity = at
	s.sessions[id] = session
	return nil
}

// UpdateRefreshToken rebinds the session to a rotated refresh token.
func (s *SessionStore) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.ErrNotFound
	}
	if session.RefreshToken != "" {
		delete(s.byToken, session.RefreshToken)
	}
	session.RefreshToken = token
	s.sessions[id] = session
	s.byToken[token] = id
	return nil
}

// Stats derives active count, distinct devices and latest activity for a user.
func (s *SessionStore) Stats(ctx context.Context, userID uuid.UUID) (model.SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.SessionStats{}
	devices := make(map[string]struct{})
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		devices[session.Device.DeviceID] = struct{}{}
		if session.LastActivity.After(stats.LastActivity) {
			stats.LastActivity = session.LastActivity
		}
		if session.IsActive {
			stats.ActiveSessions++
		}
	}
	stats.TotalDevices = len(devices)
	return stats, nil
}

// SweepExpired invalidates sessions past expiry in one linear pass.
func (s *SessionStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, session := range s.sessions {
		if session.IsActive && !session.ExpiresAt.After(now) {
			_ = s.invalidateLocked(id, now)
			swept++
		}
	}
	return swept, nil
}

func (s *SessionStore) invalidateLocked(id uuid.UUID, at time.Time) error {
	session, ok := s.sessions[id]
	if !ok {
		return model.ErrNotFound
	}
	if !session.IsActive {
		return nil
	}
	session.IsActive = false
	session.InvalidatedAt = &at
	s.sessions[id] = session
	if session.RefreshToken != "" {
		delete(s.byToken, session.RefreshToken)
	}
	return nil
}
