//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avoronov/authkeeper-server/internal/model"
	repo "github.com/avoronov/authkeeper-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "authkeeper_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/authkeeper_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUser(email string) model.User {
	now := time.Now()
	return model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	t.Run("user_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)
		u := newUser("user@example.com")
		saved, err := ur.Create(ctx, u)
		require.NoError(t, err)
		require.Equal(t, u.ID, saved.ID)

		byEmail, err := ur.GetByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
		require.Equal(t, u.PasswordHash, byEmail.PasswordHash)

		byID, err := ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)

		_, err = ur.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("blacklist_repository", func(t *testing.T) {
		br := repo.NewBlacklistRepository(conn)
		entry := model.BlacklistEntry{
			Token:         "token-1",
			UserID:        uuid.New(),
			ExpiresAt:     time.Now().Add(time.Hour),
			BlacklistedAt: time.Now(),
			Reason:        model.ReasonLogout,
		}
		require.NoError(t, br.Blacklist(ctx, entry))
		require.NoError(t, br.Blacklist(ctx, entry))

		blacklisted, err := br.IsBlacklisted(ctx, entry.Token)
		require.NoError(t, err)
		require.True(t, blacklisted)

		blacklisted, err = br.IsBlacklisted(ctx, "unknown")
		require.NoError(t, err)
		require.False(t, blacklisted)

		userID := uuid.New()
		now := time.Now()
		require.NoError(t, br.BlacklistAllForUser(ctx, model.UserRevocation{
			UserID:    userID,
			RevokedAt: now,
			ExpiresAt: now.Add(time.Hour),
			Reason:    model.ReasonSecurity,
		}))
		// An older cutoff never rolls a newer one back.
		require.NoError(t, br.BlacklistAllForUser(ctx, model.UserRevocation{
			UserID:    userID,
			RevokedAt: now.Add(-time.Minute),
			ExpiresAt: now.Add(time.Hour),
			Reason:    model.ReasonSecurity,
		}))
		revocation, err := br.GetUserRevocation(ctx, userID)
		require.NoError(t, err)
		require.WithinDuration(t, now, revocation.RevokedAt, time.Second)

		_, err = br.GetUserRevocation(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("session_repository", func(t *testing.T) {
		sr := repo.NewSessionRepository(conn)
		userID := uuid.New()
		now := time.Now()

		session := model.Session{
			ID:     uuid.New(),
			UserID: userID,
			Device: model.DeviceInfo{
				DeviceID:  "dev-1",
				UserAgent: "Mozilla/5.0",
				IP:        "192.0.2.1",
				Browser:   "Firefox",
				OS:        "Linux",
			},
			RefreshToken: "refresh-1",
			IsActive:     true,
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(time.Hour),
		}
		saved, err := sr.Create(ctx, session)
		require.NoError(t, err)
		require.Equal(t, session.ID, saved.ID)
		require.Equal(t, session.Device, saved.Device)

		byToken, err := sr.GetByRefreshToken(ctx, "refresh-1")
		require.NoError(t, err)
		require.Equal(t, session.ID, byToken.ID)

		require.NoError(t, sr.UpdateRefreshToken(ctx, session.ID, "refresh-2"))
		_, err = sr.GetByRefreshToken(ctx, "refresh-1")
		require.ErrorIs(t, err, model.ErrNotFound)

		require.NoError(t, sr.Touch(ctx, session.ID, now.Add(time.Minute)))

		active, err := sr.ListActive(ctx, userID)
		require.NoError(t, err)
		require.Len(t, active, 1)

		stats, err := sr.Stats(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, 1, stats.ActiveSessions)
		require.Equal(t, 1, stats.TotalDevices)

		require.NoError(t, sr.Invalidate(ctx, session.ID))
		require.NoError(t, sr.Invalidate(ctx, session.ID))
		require.ErrorIs(t, sr.Invalidate(ctx, uuid.New()), model.ErrNotFound)

		got, err := sr.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.False(t, got.IsActive)
		require.NotNil(t, got.InvalidatedAt)

		active, err = sr.ListActive(ctx, userID)
		require.NoError(t, err)
		require.Empty(t, active)
	})
}

func TestSessionRepository_InvalidateScopes(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	sr := repo.NewSessionRepository(conn)
	userID := uuid.New()
	now := time.Now()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s := model.Session{
			ID:           uuid.New(),
			UserID:       userID,
			Device:       model.DeviceInfo{DeviceID: fmt.Sprintf("dev-%d", i)},
			RefreshToken: fmt.Sprintf("scope-refresh-%d", i),
			IsActive:     true,
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(time.Hour),
		}
		_, err := sr.Create(ctx, s)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	require.NoError(t, sr.InvalidateByRefreshToken(ctx, "scope-refresh-0"))
	require.ErrorIs(t, sr.InvalidateByRefreshToken(ctx, "scope-refresh-0"), model.ErrNotFound)

	require.NoError(t, sr.InvalidateOthers(ctx, userID, ids[1]))
	active, err := sr.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, ids[1], active[0].ID)

	require.NoError(t, sr.InvalidateAll(ctx, userID))
	active, err = sr.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestRepositories_Sweep(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	br := repo.NewBlacklistRepository(conn)
	sr := repo.NewSessionRepository(conn)
	now := time.Now()

	require.NoError(t, br.Blacklist(ctx, model.BlacklistEntry{
		Token:         "sweep-stale",
		ExpiresAt:     now.Add(-time.Minute),
		BlacklistedAt: now.Add(-time.Hour),
		Reason:        model.ReasonLogout,
	}))
	require.NoError(t, br.Blacklist(ctx, model.BlacklistEntry{
		Token:         "sweep-live",
		ExpiresAt:     now.Add(time.Hour),
		BlacklistedAt: now,
		Reason:        model.ReasonLogout,
	}))

	removed, err := br.Sweep(ctx, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, 1)

	blacklisted, err := br.IsBlacklisted(ctx, "sweep-live")
	require.NoError(t, err)
	require.True(t, blacklisted)
	blacklisted, err = br.IsBlacklisted(ctx, "sweep-stale")
	require.NoError(t, err)
	require.False(t, blacklisted)

	_, err = sr.Create(ctx, model.Session{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		RefreshToken: "sweep-session",
		IsActive:     true,
		CreatedAt:    now.Add(-2 * time.Hour),
		LastActivity: now.Add(-2 * time.Hour),
		ExpiresAt:    now.Add(-time.Hour),
	})
	require.NoError(t, err)

	swept, err := sr.SweepExpired(ctx, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, swept, 1)

	_, err = sr.GetByRefreshToken(ctx, "sweep-session")
	require.ErrorIs(t, err, model.ErrNotFound)
}
