package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.AlertStore = (*AlertStore)(nil)

// AlertStore is an in-memory append-only AlertStore pruned by age.
type AlertStore struct {
	mu     sync.RWMutex
	alerts []model.SecurityAlert
}

// NewAlertStore returns an empty in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Append adds an alert to the list.
func (s *AlertStore) Append(ctx context.Context, alert model.SecurityAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

// ListByUser returns alerts tagged with the user, oldest first.
func (s *AlertStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.SecurityAlert
	for _, alert := range s.alerts {
		if alert.UserID == userID {
			out = append(out, alert)
		}
	}
	return out, nil
}

// CountByTypeAndIP counts alerts of the type whose "ip" detail matches,
// created at or after since.
func (s *AlertStore) CountByTypeAndIP(ctx context.Context, alertType model.AlertType, ip string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, alert := range s.alerts {
		if alert.Type != alertType || alert.CreatedAt.Before(since) {
			continue
		}
		if alert.Details["ip"] == ip {
			count++
		}
	}
	return count, nil
}

// Prune discards alerts created before cutoff.
func (s *AlertStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	removed := 0
	for _, alert := range s.alerts {
		if alert.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, alert)
	}
	s.alerts = kept
	return removed, nil
}
