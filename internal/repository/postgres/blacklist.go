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

var _ model.RevocationStore = (*BlacklistRepository)(nil)

type BlacklistRepository struct {
	db *Connection
}

func NewBlacklistRepository(db *Connection) *BlacklistRepository {
	return &BlacklistRepository{
		db: db,
	}
}

func (r *BlacklistRepository) Blacklist(ctx context.Context, entry model.BlacklistEntry) error {
	// ON CONFLICT DO NOTHING keeps the earliest BlacklistedAt.
	query := `INSERT INTO blacklist_entries (token, user_id, expires_at, blacklisted_at, reason)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (token) DO NOTHING`

	var userID *uuid.UUID
	if entry.UserID != uuid.Nil {
		userID = &entry.UserID
	}

	_, err := r.db.Exec(ctx, query,
		entry.Token, userID, entry.ExpiresAt, entry.BlacklistedAt, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blacklist_entries WHERE token = $1)`

	var blacklisted bool
	if err := r.db.QueryRow(ctx, query, token).Scan(&blacklisted); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return blacklisted, nil
}

func (r *BlacklistRepository) BlacklistAllForUser(ctx context.Context, revocation model.UserRevocation) error {
	// The latest cutoff wins; an older revocation never rolls a newer one back.
	query := `INSERT INTO user_revocations (user_id, revoked_at, expires_at, reason)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (user_id) DO UPDATE
			  SET revoked_at = EXCLUDED.revoked_at,
			      expires_at = EXCLUDED.expires_at,
			      reason = EXCLUDED.reason
			  WHERE user_revocations.revoked_at < EXCLUDED.revoked_at`

	_, err := r.db.Exec(ctx, query,
		revocation.UserID, revocation.RevokedAt, revocation.ExpiresAt, revocation.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record user revocation: %w", err)
	}

	return nil
}

func (r *BlacklistRepository) GetUserRevocation(ctx context.Context, userID uuid.UUID) (model.UserRevocation, error) {
	var revocation model.UserRevocation
	query := `SELECT user_id, revoked_at, expires_at, reason
			  FROM user_revocations WHERE user_id = $1`

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&revocation.UserID, &revocation.RevokedAt, &revocation.ExpiresAt, &revocation.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserRevocation{}, model.ErrNotFound
		}
		return model.UserRevocation{}, fmt.Errorf("failed to get user revocation: %w", err)
	}

	return revocation, nil
}

func (r *BlacklistRepository) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0

	tag, err := r.db.Exec(ctx, `DELETE FROM blacklist_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep blacklist entries: %w", err)
	}
	removed += int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM user_revocations WHERE expires_at <= $1`, now)
	if err != nil {
		return removed, fmt.Errorf("failed to sweep user revocations: %w", err)
	}
	removed += int(tag.RowsAffected())

	return removed, nil
}
