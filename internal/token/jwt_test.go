package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/authkeeper-server/internal/model"
)

func testPrincipal() model.Principal {
	return model.Principal{ID: uuid.New(), Email: "user@example.com", Role: model.RoleUser}
}

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", 15*time.Minute, 30*24*time.Hour)
	p := testPrincipal()

	access, err := j.GenerateAccessToken(p)
	require.NoError(t, err)

	claims, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, p, claims.Principal)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestJWT_RefreshToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", 15*time.Minute, 30*24*time.Hour)
	u := uuid.New()

	refresh, jti, err := j.GenerateRefreshToken(u)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := j.ParseRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, u, claims.UserID)
	require.Equal(t, jti, claims.JTI)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	j := NewJWT("secret", 15*time.Minute, 30*24*time.Hour)

	access, err := j.GenerateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = j.ParseRefreshToken(access)
	require.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWT("secret", -time.Minute, 30*24*time.Hour)

	access, err := j.GenerateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = j.ParseAccessToken(access)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestJWT_WrongSecret(t *testing.T) {
	j := NewJWT("secret", 15*time.Minute, 30*24*time.Hour)
	other := NewJWT("other", 15*time.Minute, 30*24*time.Hour)

	access, err := j.GenerateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = other.ParseAccessToken(access)
	require.ErrorIs(t, err, model.ErrTokenInvalidSignature)
}

func TestJWT_Malformed(t *testing.T) {
	j := NewJWT("secret", 15*time.Minute, 30*24*time.Hour)

	_, err := j.ParseAccessToken("not-a-token")
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrTokenExpired)
}

func TestJWT_AccessTTL(t *testing.T) {
	j := NewJWT("secret", 42*time.Minute, time.Hour)
	require.Equal(t, 42*time.Minute, j.AccessTTL())
}
