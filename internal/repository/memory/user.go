package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.UserStore = (*UserStore)(nil)

// UserStore is an in-memory credential store keyed by user ID with an email
// index. Intended for development and tests.
type UserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]model.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return s.users[id], nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok || user.DeletedAt != nil {
		return model.User{}, model.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return model.User{}, model.ErrEmailTaken
	}

	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}
