package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/logger"
	"github.com/avoronov/authkeeper-server/internal/model"
)

// Auth orchestrates the token and session lifecycle: it composes the token
// codec, the revocation/session/throttle registries and the anomaly detector
// to serve login, refresh, logout, logout-all and introspection, consuming
// the external credential store.
type Auth struct {
	users            model.UserStore
	hasher           model.PasswordHasher
	tokens           model.TokenManager
	revocations      model.RevocationStore
	sessions         model.SessionStore
	loginThrottle    *Throttle
	registerThrottle *Throttle
	anomaly          *Anomaly
	logger           *logger.Logger
	refreshTTL       time.Duration
}

// NewAuth creates the session lifecycle orchestrator.
func NewAuth(
	users model.UserStore,
	hasher model.PasswordHasher,
	tokens model.TokenManager,
	revocations model.RevocationStore,
	sessions model.SessionStore,
	loginThrottle *Throttle,
	registerThrottle *Throttle,
	anomaly *Anomaly,
	logger *logger.Logger,
	refreshTTL time.Duration,
) *Auth {
	return &Auth{
		users:            users,
		hasher:           hasher,
		tokens:           tokens,
		revocations:      revocations,
		sessions:         sessions,
		loginThrottle:    loginThrottle,
		registerThrottle: registerThrottle,
		anomaly:          anomaly,
		logger:           logger,
		refreshTTL:       refreshTTL,
	}
}

// AuthResult is the outcome of a successful login or refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	SessionID    uuid.UUID
	IsNewDevice  bool
}

// SessionsView is the read-only projection served by GetSessions.
type SessionsView struct {
	Sessions []model.Session
	Stats    model.SessionStats
}

// Login authenticates the credentials and creates a device session.
// Throttled subjects never reach the credential store. Failures are uniform
// (ErrInvalidCredentials) and never reveal whether the email exists.
func (a *Auth) Login(ctx context.Context, email, password string, device model.DeviceInfo) (AuthResult, error) {
	a.logger.Debug("Auth service: login attempt",
		"email", email,
		"ip", device.IP)

	throttleKey := "login:" + device.IP
	if err := a.loginThrottle.Check(ctx, throttleKey); err != nil {
		return AuthResult{}, err
	}

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return AuthResult{}, a.failLogin(ctx, throttleKey, email, device.IP, uuid.Nil)
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		a.logger.Error("Auth service: password verification failed",
			"email", email,
			"error", err.Error())
		return AuthResult{}, a.failLogin(ctx, throttleKey, email, device.IP, user.ID)
	}
	if !ok {
		return AuthResult{}, a.failLogin(ctx, throttleKey, email, device.IP, user.ID)
	}

	if err := a.loginThrottle.Record(ctx, throttleKey, true); err != nil {
		a.logger.Error("Auth service: failed to reset throttle",
			"email", email,
			"error", err.Error())
	}

	result, session, err := a.issueSession(ctx, user.Principal(), device)
	if err != nil {
		return AuthResult{}, err
	}

	check, err := a.anomaly.CheckNewDevice(ctx, user.ID, device, session.ID)
	if err != nil {
		// Observability only, the login already succeeded.
		a.logger.Error("Auth service: new device check failed",
			"user_id", user.ID,
			"error", err.Error())
	}
	result.IsNewDevice = check.IsNewDevice

	a.logger.Info("Auth service: login succeeded",
		"user_id", user.ID,
		"session_id", session.ID,
		"new_device", check.IsNewDevice)

	return result, nil
}

// Register creates a new user through the credential store. Registration
// attempts are throttled per IP and never reset on success. The user is not
// logged in; the caller follows up with Login.
func (a *Auth) Register(ctx context.Context, email, password string, device model.DeviceInfo) (model.Principal, error) {
	throttleKey := "register:" + device.IP
	if err := a.registerThrottle.Check(ctx, throttleKey); err != nil {
		return model.Principal{}, err
	}
	if err := a.registerThrottle.Record(ctx, throttleKey, false); err != nil {
		a.logger.Error("Auth service: failed to record registration attempt",
			"ip", device.IP,
			"error", err.Error())
	}

	email = strings.ToLower(strings.TrimSpace(email))

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		return model.Principal{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Principal{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return model.Principal{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user, err := a.users.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.Principal{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"user_id", user.ID)

	return user.Principal(), nil
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// access token, when presented and still parseable, is blacklisted. When the
// refresh token is bound to a live session, the session is rotated to the
// new refresh token; otherwise no session is touched.
func (a *Auth) Refresh(ctx context.Context, oldAccessToken, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, model.ErrUnauthorized
	}

	blacklisted, err := a.revocations.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		// Unknown revocation state fails closed.
		a.logger.Error("Auth service: revocation lookup failed", "error", err.Error())
		return AuthResult{}, model.ErrTokenBlacklisted
	}
	if blacklisted {
		return AuthResult{}, model.ErrTokenBlacklisted
	}

	claims, err := a.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return AuthResult{}, normalizeTokenError(err)
	}

	// A user-wide revocation cutoff covers refresh tokens too: a token issued
	// before a logout-everywhere must never mint a fresh pair.
	revocation, err := a.revocations.GetUserRevocation(ctx, claims.UserID)
	switch {
	case err == nil:
		if !claims.IssuedAt.After(revocation.RevokedAt) {
			return AuthResult{}, model.ErrTokenBlacklisted
		}
	case errors.Is(err, model.ErrNotFound):
	default:
		a.logger.Error("Auth service: user revocation lookup failed", "error", err.Error())
		return AuthResult{}, model.ErrTokenBlacklisted
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return AuthResult{}, model.ErrUnauthorized
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	if oldAccessToken != "" {
		a.blacklistAccessToken(ctx, oldAccessToken, model.ReasonLogout)
	}

	access, err := a.tokens.GenerateAccessToken(user.Principal())
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	newRefresh, _, err := a.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	result := AuthResult{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(a.tokens.AccessTTL().Seconds()),
	}

	session, err := a.sessions.GetByRefreshToken(ctx, refreshToken)
	switch {
	case err == nil && session.IsActive:
		if err := a.sessions.UpdateRefreshToken(ctx, session.ID, newRefresh); err != nil {
			return AuthResult{}, fmt.Errorf("failed to rotate session refresh token: %w", err)
		}
		// The superseded refresh token is dead after rotation; without an
		// entry it would keep minting sessionless pairs until natural expiry.
		if err := a.revocations.Blacklist(ctx, model.BlacklistEntry{
			Token:         refreshToken,
			UserID:        claims.UserID,
			ExpiresAt:     claims.ExpiresAt,
			BlacklistedAt: time.Now(),
			Reason:        model.ReasonRotated,
		}); err != nil {
			a.logger.Error("Auth service: failed to blacklist rotated refresh token",
				"session_id", session.ID,
				"error", err.Error())
		}
		if err := a.sessions.Touch(ctx, session.ID, time.Now()); err != nil {
			a.logger.Error("Auth service: failed to touch session",
				"session_id", session.ID,
				"error", err.Error())
		}
		result.SessionID = session.ID
	case err == nil && !session.IsActive:
		return AuthResult{}, model.ErrTokenBlacklisted
	case errors.Is(err, model.ErrNotFound):
		// No backing session. The pair is still issued; refresh tokens are
		// valid without session tracking.
	default:
		return AuthResult{}, fmt.Errorf("failed to look up session: %w", err)
	}

	a.logger.Info("Auth service: tokens refreshed",
		"user_id", user.ID,
		"session_id", result.SessionID)

	return result, nil
}

// Logout blacklists the access token and invalidates the matching session
// when a refresh token is given. Logout is idempotent: repeating it with the
// same pair, or with tokens that already expired or were never tracked,
// still succeeds.
func (a *Auth) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		a.blacklistAccessToken(ctx, accessToken, model.ReasonLogout)
	}

	if refreshToken != "" {
		// Unparseable or already-expired tokens are skipped: they can never
		// verify, and an entry for them lives on until its recorded expiry.
		if claims, err := a.tokens.ParseRefreshToken(refreshToken); err == nil {
			if err := a.revocations.Blacklist(ctx, model.BlacklistEntry{
				Token:         refreshToken,
				UserID:        claims.UserID,
				ExpiresAt:     claims.ExpiresAt,
				BlacklistedAt: time.Now(),
				Reason:        model.ReasonLogout,
			}); err != nil {
				return fmt.Errorf("failed to blacklist refresh token: %w", err)
			}
		}

		err := a.sessions.InvalidateByRefreshToken(ctx, refreshToken)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to invalidate session: %w", err)
		}
	}

	return nil
}

// LogoutAll invalidates every session of the user and records a user-wide
// revocation cutoff so tokens issued before now stop verifying.
func (a *Auth) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	if err := a.revocations.BlacklistAllForUser(ctx, model.UserRevocation{
		UserID:    userID,
		RevokedAt: now,
		ExpiresAt: now.Add(a.refreshTTL),
		Reason:    model.ReasonSecurity,
	}); err != nil {
		return fmt.Errorf("failed to record user revocation: %w", err)
	}

	if err := a.sessions.InvalidateAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	a.logger.Info("Auth service: logged out everywhere",
		"user_id", userID)

	return nil
}

// Authenticate verifies a raw bearer token and returns the principal.
// The blacklist is consulted before signature and expiry -- the cheap check
// runs first, and a revoked token must never verify regardless of the
// signature outcome.
func (a *Auth) Authenticate(ctx context.Context, rawToken string) (model.Principal, error) {
	if rawToken == "" {
		return model.Principal{}, model.ErrUnauthorized
	}

	blacklisted, err := a.revocations.IsBlacklisted(ctx, rawToken)
	if err != nil {
		// Unknown revocation state fails closed rather than admitting the token.
		a.logger.Error("Auth service: revocation lookup failed", "error", err.Error())
		return model.Principal{}, model.ErrTokenBlacklisted
	}
	if blacklisted {
		return model.Principal{}, model.ErrTokenBlacklisted
	}

	claims, err := a.tokens.ParseAccessToken(rawToken)
	if err != nil {
		return model.Principal{}, normalizeTokenError(err)
	}

	revocation, err := a.revocations.GetUserRevocation(ctx, claims.ID)
	switch {
	case err == nil:
		if !claims.IssuedAt.After(revocation.RevokedAt) {
			return model.Principal{}, model.ErrTokenBlacklisted
		}
	case errors.Is(err, model.ErrNotFound):
	default:
		a.logger.Error("Auth service: user revocation lookup failed", "error", err.Error())
		return model.Principal{}, model.ErrTokenBlacklisted
	}

	return claims.Principal, nil
}

// GetSessions returns the user's active sessions together with derived stats.
func (a *Auth) GetSessions(ctx context.Context, userID uuid.UUID) (SessionsView, error) {
	sessions, err := a.sessions.ListActive(ctx, userID)
	if err != nil {
		return SessionsView{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	stats, err := a.sessions.Stats(ctx, userID)
	if err != nil {
		return SessionsView{}, fmt.Errorf("failed to derive session stats: %w", err)
	}
	return SessionsView{Sessions: sessions, Stats: stats}, nil
}

// TouchSession updates a session's last activity. Best-effort.
func (a *Auth) TouchSession(ctx context.Context, sessionID uuid.UUID) {
	if err := a.sessions.Touch(ctx, sessionID, time.Now()); err != nil {
		a.logger.Error("Auth service: failed to touch session",
			"session_id", sessionID,
			"error", err.Error())
	}
}

func (a *Auth) issueSession(ctx context.Context, principal model.Principal, device model.DeviceInfo) (AuthResult, model.Session, error) {
	access, err := a.tokens.GenerateAccessToken(principal)
	if err != nil {
		return AuthResult{}, model.Session{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, _, err := a.tokens.GenerateRefreshToken(principal.ID)
	if err != nil {
		return AuthResult{}, model.Session{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	now := time.Now()
	session, err := a.sessions.Create(ctx, model.Session{
		ID:           uuid.New(),
		UserID:       principal.ID,
		Device:       device,
		RefreshToken: refresh,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(a.refreshTTL),
	})
	if err != nil {
		return AuthResult{}, model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.tokens.AccessTTL().Seconds()),
		SessionID:    session.ID,
	}, session, nil
}

// failLogin runs the failure path: counts the attempt, records the alert and
// correlates suspicious activity, then reports uniform invalid credentials.
func (a *Auth) failLogin(ctx context.Context, throttleKey, email, ip string, userID uuid.UUID) error {
	if err := a.loginThrottle.Record(ctx, throttleKey, false); err != nil {
		a.logger.Error("Auth service: failed to record login failure",
			"ip", ip,
			"error", err.Error())
	}
	if err := a.anomaly.RecordFailedLogin(ctx, email, ip); err != nil {
		a.logger.Error("Auth service: failed to record failed login alert",
			"ip", ip,
			"error", err.Error())
	}
	if _, err := a.anomaly.CheckSuspiciousActivity(ctx, userID, ip); err != nil {
		a.logger.Error("Auth service: suspicious activity check failed",
			"ip", ip,
			"error", err.Error())
	}
	return model.ErrInvalidCredentials
}

// blacklistAccessToken parses the token leniently and blacklists it for the
// remainder of its natural lifetime. Already-expired or unparseable tokens
// are skipped: they cannot be used anyway and logout stays idempotent.
func (a *Auth) blacklistAccessToken(ctx context.Context, tokenString string, reason model.BlacklistReason) {
	claims, err := a.tokens.ParseAccessToken(tokenString)
	if err != nil {
		return
	}
	if err := a.revocations.Blacklist(ctx, model.BlacklistEntry{
		Token:         tokenString,
		UserID:        claims.ID,
		ExpiresAt:     claims.ExpiresAt,
		BlacklistedAt: time.Now(),
		Reason:        reason,
	}); err != nil {
		a.logger.Error("Auth service: failed to blacklist access token",
			"user_id", claims.ID,
			"error", err.Error())
	}
}

// normalizeTokenError collapses codec failures into the public taxonomy.
func normalizeTokenError(err error) error {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return model.ErrTokenExpired
	case errors.Is(err, model.ErrTokenInvalidSignature):
		return model.ErrTokenInvalidSignature
	default:
		return model.ErrUnauthorized
	}
}
