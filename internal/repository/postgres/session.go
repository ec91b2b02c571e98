package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avoronov/authkeeper-server/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

type SessionRepository struct {
	db *Connection
}

func NewSessionRepository(db *Connection) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

const sessionColumns = `id, user_id, device_id, user_agent, ip, browser, os,
			  refresh_token, is_active, created_at, last_activity, expires_at, invalidated_at`

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.Device.DeviceID, &s.Device.UserAgent, &s.Device.IP,
		&s.Device.Browser, &s.Device.OS, &s.RefreshToken, &s.IsActive,
		&s.CreatedAt, &s.LastActivity, &s.ExpiresAt, &s.InvalidatedAt,
	)
	return s, err
}

func (r *SessionRepository) Create(ctx context.Context, session model.Session) (model.Session, error) {
	query := `INSERT INTO sessions (id, user_id, device_id, user_agent, ip, browser, os,
			  refresh_token, is_active, created_at, last_activity, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING ` + sessionColumns

	saved, err := scanSession(r.db.QueryRow(ctx, query,
		session.ID, session.UserID,
		session.Device.DeviceID, session.Device.UserAgent, session.Device.IP,
		session.Device.Browser, session.Device.OS,
		session.RefreshToken, session.IsActive,
		session.CreatedAt, session.LastActivity, session.ExpiresAt,
	))
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return saved, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, token string) (model.Session, error) {
	// Only an active session holds a refresh token binding; invalidation
	// releases it.
	query := `SELECT ` + sessionColumns + `
			  FROM sessions WHERE refresh_token = $1 AND is_active = TRUE
			  ORDER BY created_at DESC LIMIT 1`

	session, err := scanSession(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session by refresh token: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + `
			  FROM sessions WHERE user_id = $1 AND is_active = TRUE
			  ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) Invalidate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE, invalidated_at = $2
			  WHERE id = $1 AND is_active = TRUE`

	tag, err := r.db.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already invalidated.
		exists := false
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return model.ErrNotFound
		}
	}

	return nil
}

func (r *SessionRepository) InvalidateByRefreshToken(ctx context.Context, token string) error {
	query := `UPDATE sessions SET is_active = FALSE, invalidated_at = $2
			  WHERE refresh_token = $1 AND is_active = TRUE`

	tag, err := r.db.Exec(ctx, query, token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *SessionRepository) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE, invalidated_at = $2
			  WHERE user_id = $1 AND is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	return nil
}

func (r *SessionRepository) InvalidateOthers(ctx context.Context, userID uuid.UUID, keepID uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE, invalidated_at = $3
			  WHERE user_id = $1 AND id <> $2 AND is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, userID, keepID, time.Now()); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sessions SET last_activity = $2 WHERE id = $1 AND is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

func (r *SessionRepository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE sessions SET refresh_token = $2 WHERE id = $1 AND is_active = TRUE`

	tag, err := r.db.Exec(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("failed to update session refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *SessionRepository) Stats(ctx context.Context, userID uuid.UUID) (model.SessionStats, error) {
	query := `SELECT COUNT(*), COUNT(DISTINCT device_id), COALESCE(MAX(last_activity), 'epoch'::timestamptz)
			  FROM sessions WHERE user_id = $1 AND is_active = TRUE`

	var stats model.SessionStats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.ActiveSessions, &stats.TotalDevices, &stats.LastActivity,
	)
	if err != nil {
		return model.SessionStats{}, fmt.Errorf("failed to derive session stats: %w", err)
	}
	if stats.ActiveSessions == 0 {
		stats.LastActivity = time.Time{}
	}

	return stats, nil
}

func (r *SessionRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE sessions SET is_active = FALSE, invalidated_at = $1
			  WHERE is_active = TRUE AND expires_at <= $1`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
