package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(principal Principal) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (token string, jti string, err error)
	ParseAccessToken(token string) (AccessClaims, error)
	ParseRefreshToken(token string) (RefreshClaims, error)
	AccessTTL() time.Duration
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	UserID    uuid.UUID
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
