package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/usecase"
)

// RegistrationHandler exposes the self-service account registration endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register creates a new account with the default role attached.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password is required"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUsernameTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username already taken"))
		case errors.Is(err, usecase.ErrPasswordPolicyViolation):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to register user"))
		}
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{User: newUserSummary(account)})
}
