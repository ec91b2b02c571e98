package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/authkeeper-server/internal/model"
	"github.com/avoronov/authkeeper-server/internal/repository/memory"
	"github.com/avoronov/authkeeper-server/internal/testutil"
)

func deviceA() model.DeviceInfo {
	return model.DeviceInfo{DeviceID: "a", UserAgent: "Mozilla/5.0 (X11; Linux)", IP: "192.0.2.1", Browser: "Firefox", OS: "Linux"}
}

func deviceB() model.DeviceInfo {
	return model.DeviceInfo{DeviceID: "b", UserAgent: "Mozilla/5.0 (iPhone)", IP: "198.51.100.9", Browser: "Safari", OS: "iOS"}
}

func newAnomalyFixture(t *testing.T) (*Anomaly, *memory.SessionStore, *memory.AlertStore) {
	t.Helper()
	sessions := memory.NewSessionStore()
	alerts := memory.NewAlertStore()
	return NewAnomaly(sessions, alerts, testutil.MakeNoopLogger()), sessions, alerts
}

func createActiveSession(t *testing.T, sessions *memory.SessionStore, userID uuid.UUID, device model.DeviceInfo, token string) model.Session {
	t.Helper()
	now := time.Now()
	session, err := sessions.Create(context.Background(), model.Session{
		UserID:       userID,
		Device:       device,
		RefreshToken: token,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(time.Hour),
	})
	require.NoError(t, err)
	return session
}

func TestAnomaly_FirstSessionIsNotNewDevice(t *testing.T) {
	ctx := context.Background()
	a, sessions, alerts := newAnomalyFixture(t)
	userID := uuid.New()

	created := createActiveSession(t, sessions, userID, deviceA(), "r1")

	check, err := a.CheckNewDevice(ctx, userID, deviceA(), created.ID)
	require.NoError(t, err)
	assert.False(t, check.IsNewDevice)
	assert.Nil(t, check.Alert)

	got, err := alerts.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnomaly_UnseenFingerprintAlerts(t *testing.T) {
	ctx := context.Background()
	a, sessions, alerts := newAnomalyFixture(t)
	userID := uuid.New()

	createActiveSession(t, sessions, userID, deviceA(), "r1")
	second := createActiveSession(t, sessions, userID, deviceB(), "r2")

	check, err := a.CheckNewDevice(ctx, userID, deviceB(), second.ID)
	require.NoError(t, err)
	assert.True(t, check.IsNewDevice)
	require.NotNil(t, check.Alert)
	assert.Equal(t, model.AlertNewLogin, check.Alert.Type)
	assert.Equal(t, model.SeverityMedium, check.Alert.Severity)

	// Replaying the first fingerprint produces nothing new.
	third := createActiveSession(t, sessions, userID, deviceA(), "r3")
	check, err = a.CheckNewDevice(ctx, userID, deviceA(), third.ID)
	require.NoError(t, err)
	assert.False(t, check.IsNewDevice)

	got, err := alerts.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAnomaly_MatchOnBrowserOSIP(t *testing.T) {
	ctx := context.Background()
	a, sessions, _ := newAnomalyFixture(t)
	userID := uuid.New()

	createActiveSession(t, sessions, userID, deviceA(), "r1")

	// Different user agent string, same browser/OS/IP tuple.
	candidate := deviceA()
	candidate.UserAgent = "Mozilla/5.0 (X11; Linux; rv:139.0)"
	session := createActiveSession(t, sessions, userID, candidate, "r2")

	check, err := a.CheckNewDevice(ctx, userID, candidate, session.ID)
	require.NoError(t, err)
	assert.False(t, check.IsNewDevice)
}

func TestAnomaly_SuspiciousActivityThreshold(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAnomalyFixture(t)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, a.RecordFailedLogin(ctx, "u@example.com", "192.0.2.7"))
	}
	alert, err := a.CheckSuspiciousActivity(ctx, userID, "192.0.2.7")
	require.NoError(t, err)
	assert.Nil(t, alert)

	require.NoError(t, a.RecordFailedLogin(ctx, "u@example.com", "192.0.2.7"))
	alert, err = a.CheckSuspiciousActivity(ctx, userID, "192.0.2.7")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertSuspiciousActivity, alert.Type)
	assert.Equal(t, model.SeverityHigh, alert.Severity)
}

func TestAnomaly_PruneOlderThan(t *testing.T) {
	ctx := context.Background()
	a, _, alerts := newAnomalyFixture(t)

	require.NoError(t, alerts.Append(ctx, model.SecurityAlert{
		Type:      model.AlertFailedAttempts,
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
	}))
	require.NoError(t, a.RecordFailedLogin(ctx, "u@example.com", "192.0.2.7"))

	removed, err := a.PruneOlderThan(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
