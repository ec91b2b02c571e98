package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avoronov/authkeeper-server/internal/logger"
	"github.com/avoronov/authkeeper-server/internal/model"
	"github.com/avoronov/authkeeper-server/internal/service"
)

// AuthService is the slice of the lifecycle orchestrator the handlers need.
type AuthService interface {
	Login(ctx context.Context, email, password string, device model.DeviceInfo) (service.AuthResult, error)
	Register(ctx context.Context, email, password string, device model.DeviceInfo) (model.Principal, error)
	Refresh(ctx context.Context, oldAccessToken, refreshToken string) (service.AuthResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	Authenticate(ctx context.Context, rawToken string) (model.Principal, error)
	GetSessions(ctx context.Context, userID uuid.UUID) (service.SessionsView, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID)
}

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	auth   AuthService
	logger *logger.Logger
}

func NewAuthHandler(auth AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id,omitempty"`
	NewDevice    bool   `json:"new_device,omitempty"`
}

func tokenPair(result service.AuthResult) tokenPairResponse {
	resp := tokenPairResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		NewDevice:    result.IsNewDevice,
	}
	if result.SessionID != uuid.Nil {
		resp.SessionID = result.SessionID.String()
	}
	return resp
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, deviceFromRequest(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenPair(result))
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and a password of at least 8 characters are required."})
		return
	}

	principal, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, deviceFromRequest(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    principal.ID.String(),
		"email": principal.Email,
		"role":  principal.Role,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Refresh token is required."})
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenPair(result))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	// Logout without a body still blacklists the bearer token.
	_ = c.ShouldBindJSON(&req)

	if err := h.auth.Logout(c.Request.Context(), bearerToken(c), req.RefreshToken); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal, ok := GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Session invalid."})
		return
	}

	if err := h.auth.LogoutAll(c.Request.Context(), principal.ID); err != nil {
		h.respondError(c, err)
		return
	}
	// The bearer token predates the cutoff, but blacklist it explicitly too.
	if err := h.auth.Logout(c.Request.Context(), bearerToken(c), ""); err != nil {
		h.logger.Error("HTTP: failed to blacklist bearer token on logout-all",
			"error", err.Error())
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out_everywhere"})
}

type sessionResponse struct {
	ID           string `json:"id"`
	DeviceID     string `json:"device_id,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	IP           string `json:"ip,omitempty"`
	Browser      string `json:"browser,omitempty"`
	OS           string `json:"os,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	Current      bool   `json:"current,omitempty"`
}

func (h *AuthHandler) Sessions(c *gin.Context) {
	principal, ok := GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Session invalid."})
		return
	}

	view, err := h.auth.GetSessions(c.Request.Context(), principal.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	currentID, _ := uuid.Parse(c.GetHeader(sessionHeader))
	sessions := make([]sessionResponse, 0, len(view.Sessions))
	for _, s := range view.Sessions {
		sessions = append(sessions, sessionResponse{
			ID:           s.ID.String(),
			DeviceID:     s.Device.DeviceID,
			UserAgent:    s.Device.UserAgent,
			IP:           s.Device.IP,
			Browser:      s.Device.Browser,
			OS:           s.Device.OS,
			CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
			LastActivity: s.LastActivity.UTC().Format(time.RFC3339),
			Current:      s.ID == currentID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"stats": gin.H{
			"active_sessions": view.Stats.ActiveSessions,
			"total_devices":   view.Stats.TotalDevices,
			"last_activity":   view.Stats.LastActivity.UTC().Format(time.RFC3339),
		},
	})
}

// respondError maps service errors onto the wire. Credential failures stay
// uniform and token failures stay generic so the response never leaks which
// check rejected the request.
func (h *AuthHandler) respondError(c *gin.Context, err error) {
	var rateErr *model.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		retryAfter := int(rateErr.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "error_description": "Too many attempts. Try again later."})
	case errors.Is(err, model.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Invalid email or password."})
	case errors.Is(err, model.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "error_description": "Email is already registered."})
	case errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenInvalidSignature),
		errors.Is(err, model.ErrTokenBlacklisted),
		errors.Is(err, model.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Session invalid."})
	default:
		h.logger.Error("HTTP: request failed",
			"path", c.FullPath(),
			"error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "error_description": "Something went wrong."})
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
