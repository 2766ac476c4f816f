package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/infra/telemetry"
	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
	"github.com/attack-monitor/iam-service/internal/usecase"
)

// AuthHandler exposes login and token lifecycle endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	telemetry *telemetry.Provider
	tokenTTL  time.Duration
}

func NewAuthHandler(auth *usecase.AuthService, provider *telemetry.Provider, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		telemetry: provider,
		tokenTTL:  tokenTTL,
	}
}

// Login authenticates a username/password pair and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	token, account, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.telemetry.ObserveLogin("failure")
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid username or password"))
		case errors.Is(err, usecase.ErrInactiveAccount):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is deactivated"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to authenticate"))
		}
		return
	}

	h.telemetry.ObserveLogin("success")
	h.telemetry.ObserveTokenIssued()

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokenTTL.Seconds()),
		User:        newUserSummary(account),
	})
}

// Refresh re-issues a session token for the caller of a still-valid token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing or malformed authorization header"))
		return
	}

	fresh, account, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		h.respondTokenError(c, err)
		return
	}

	h.telemetry.ObserveTokenIssued()

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken: fresh,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokenTTL.Seconds()),
		User:        newUserSummary(account),
	})
}

// VerifyToken resolves the bearer token to its account and returns the identity.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing or malformed authorization header"))
		return
	}

	account, err := h.auth.AuthenticateToken(c.Request.Context(), token)
	if err != nil {
		h.respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyTokenResponse{
		Valid: true,
		User:  newUserSummary(account),
	})
}

// DebugToken classifies an arbitrary token as valid, expired, or invalid.
// Expired tokens still report their claims so operators can see whose
// token it was.
func (h *AuthHandler) DebugToken(c *gin.Context) {
	var req DebugTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	status := h.auth.TokenStatus(req.Token)

	resp := DebugTokenResponse{
		State:   string(status.State),
		Subject: status.Subject,
		UserID:  status.UserID,
		Roles:   status.Roles,
	}
	if status.ExpiresAt != nil {
		expires := status.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) respondTokenError(c *gin.Context, err error) {
	respondWithMappedError(c, err, []errorCase{
		{err: usecase.ErrExpiredAccessToken, status: http.StatusUnauthorized, message: "access token expired"},
		{err: usecase.ErrInvalidAccessToken, status: http.StatusUnauthorized, message: "invalid access token"},
		{err: usecase.ErrInactiveAccount, status: http.StatusForbidden, message: "account is deactivated"},
	}, http.StatusInternalServerError, "failed to process token")
}
