package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AlertType classifies security alerts.
type AlertType string

const (
	AlertNewLogin           AlertType = "new_login"
	AlertFailedAttempts     AlertType = "multiple_failed_attempts"
	AlertSuspiciousActivity AlertType = "suspicious_activity"
)

// AlertSeverity grades security alerts.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// SecurityAlert is an observability signal emitted by the anomaly detector.
// Alerts never block a login.
type SecurityAlert struct {
	ID        uuid.UUID
	Type      AlertType
	UserID    uuid.UUID
	Message   string
	Details   map[string]string
	Severity  AlertSeverity
	CreatedAt time.Time
}

// AlertStore holds an append-only alert list pruned by age.
type AlertStore interface {
	Append(ctx context.Context, alert SecurityAlert) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]SecurityAlert, error)
	// CountByTypeAndIP counts alerts of the given type whose "ip" detail
	// matches, created at or after since.
	CountByTypeAndIP(ctx context.Context, alertType AlertType, ip string, since time.Time) (int, error)
	// Prune discards alerts created before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
