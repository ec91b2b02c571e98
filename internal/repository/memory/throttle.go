package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.ThrottleStore = (*ThrottleStore)(nil)

// ThrottleStore is an in-memory ThrottleStore. Counters are created lazily
// on first failure and dropped by Sweep once their window has elapsed.
type ThrottleStore struct {
	mu       sync.RWMutex
	counters map[string]model.AttemptCounter
}

// NewThrottleStore returns an empty in-memory attempt-counter store.
func NewThrottleStore() *ThrottleStore {
	return &ThrottleStore{counters: make(map[string]model.AttemptCounter)}
}

// Get returns the counter for the key, or ErrNotFound.
func (s *ThrottleStore) Get(ctx context.Context, key string) (model.AttemptCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.counters[key]
	if !ok {
		return model.AttemptCounter{}, model.ErrNotFound
	}
	return counter, nil
}

// Put stores the counter.
func (s *ThrottleStore) Put(ctx context.Context, counter model.AttemptCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[counter.Key] = counter
	return nil
}

// Delete removes the counter for the key if present.
func (s *ThrottleStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	return nil
}

// Sweep drops counters whose window has elapsed.
func (s *ThrottleStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		if !counter.WindowResetAt.After(now) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}
