package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/logger"
	"github.com/avoronov/authkeeper-server/internal/model"
)

const suspiciousFailureThreshold = 3

// Anomaly correlates session history and failed-login events into security
// alerts. It only annotates logins with observability signal; it never
// blocks one.
type Anomaly struct {
	sessions model.SessionStore
	alerts   model.AlertStore
	logger   *logger.Logger
	now      func() time.Time
}

// NewAnomaly creates an anomaly detector over the session and alert stores.
func NewAnomaly(sessions model.SessionStore, alerts model.AlertStore, logger *logger.Logger) *Anomaly {
	return &Anomaly{sessions: sessions, alerts: alerts, logger: logger, now: time.Now}
}

// DeviceCheck is the outcome of a new-device comparison.
type DeviceCheck struct {
	IsNewDevice bool
	Alert       *model.SecurityAlert
}

// CheckNewDevice compares the device against the user's active sessions.
// A device matches when the user agent is equal or when browser, OS and IP
// all are. excludeSessionID skips the session just created for this login.
// The account's very first session is not treated as a new device.
func (a *Anomaly) CheckNewDevice(ctx context.Context, userID uuid.UUID, device model.DeviceInfo, excludeSessionID uuid.UUID) (DeviceCheck, error) {
	active, err := a.sessions.ListActive(ctx, userID)
	if err != nil {
		return DeviceCheck{}, fmt.Errorf("failed to list active sessions: %w", err)
	}

	known := false
	seen := 0
	for _, session := range active {
		if session.ID == excludeSessionID {
			continue
		}
		seen++
		if deviceMatches(session.Device, device) {
			known = true
		}
	}
	if seen == 0 || known {
		return DeviceCheck{}, nil
	}

	alert := model.SecurityAlert{
		ID:       uuid.New(),
		Type:     model.AlertNewLogin,
		UserID:   userID,
		Message:  "login from a new device",
		Severity: model.SeverityMedium,
		Details: map[string]string{
			"ip":         device.IP,
			"user_agent": device.UserAgent,
			"browser":    device.Browser,
			"os":         device.OS,
		},
		CreatedAt: a.now(),
	}
	if err := a.alerts.Append(ctx, alert); err != nil {
		return DeviceCheck{}, fmt.Errorf("failed to append alert: %w", err)
	}

	a.logger.Info("Anomaly: new device login",
		"user_id", userID,
		"ip", device.IP)

	return DeviceCheck{IsNewDevice: true, Alert: &alert}, nil
}

// RecordFailedLogin appends a low-severity failed-attempt alert tagged with
// the source IP.
func (a *Anomaly) RecordFailedLogin(ctx context.Context, email, ip string) error {
	alert := model.SecurityAlert{
		ID:       uuid.New(),
		Type:     model.AlertFailedAttempts,
		Message:  "failed login attempt",
		Severity: model.SeverityLow,
		Details: map[string]string{
			"email": email,
			"ip":    ip,
		},
		CreatedAt: a.now(),
	}
	if err := a.alerts.Append(ctx, alert); err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}
	return nil
}

// CheckSuspiciousActivity emits a high-severity alert when the IP has
// produced at least three failed-attempt alerts within the last hour.
func (a *Anomaly) CheckSuspiciousActivity(ctx context.Context, userID uuid.UUID, ip string) (*model.SecurityAlert, error) {
	since := a.now().Add(-time.Hour)
	count, err := a.alerts.CountByTypeAndIP(ctx, model.AlertFailedAttempts, ip, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed attempts: %w", err)
	}
	if count < suspiciousFailureThreshold {
		return nil, nil
	}

	alert := model.SecurityAlert{
		ID:       uuid.New(),
		Type:     model.AlertSuspiciousActivity,
		UserID:   userID,
		Message:  fmt.Sprintf("%d failed login attempts from one address within an hour", count),
		Severity: model.SeverityHigh,
		Details: map[string]string{
			"ip": ip,
		},
		CreatedAt: a.now(),
	}
	if err := a.alerts.Append(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to append alert: %w", err)
	}

	a.logger.Info("Anomaly: suspicious activity",
		"ip", ip,
		"failed_attempts", count)

	return &alert, nil
}

// PruneOlderThan discards alerts beyond the retention window.
func (a *Anomaly) PruneOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	return a.alerts.Prune(ctx, a.now().Add(-retention))
}

func deviceMatches(known, candidate model.DeviceInfo) bool {
	if known.UserAgent != "" && known.UserAgent == candidate.UserAgent {
		return true
	}
	return known.Browser == candidate.Browser &&
		known.OS == candidate.OS &&
		known.IP == candidate.IP
}
