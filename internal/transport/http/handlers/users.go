package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
	"github.com/attack-monitor/iam-service/internal/usecase"
)

// UserHandler exposes the user directory endpoints reachable by any
// authenticated caller. Admins bypass ownership, everyone else only
// reaches their own record.
type UserHandler struct {
	users      *usecase.UserService
	authorizer usecase.Authorizer
}

func NewUserHandler(users *usecase.UserService, authorizer usecase.Authorizer) *UserHandler {
	return &UserHandler{users: users, authorizer: authorizer}
}

// Me returns the authenticated caller's own account.
func (h *UserHandler) Me(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.users.Get(c.Request.Context(), actorID)
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserSummary(account))
}

// Get returns a user by id, for the user themselves or an admin.
func (h *UserHandler) Get(c *gin.Context) {
	_, targetID, ok := h.authorize(c)
	if !ok {
		return
	}

	account, err := h.users.Get(c.Request.Context(), targetID)
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserSummary(account))
}

// Update applies a partial update to a user record.
func (h *UserHandler) Update(c *gin.Context) {
	actorID, targetID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid update payload"))
		return
	}
	if req.Username == nil && req.IsActive == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "at least one field must be provided"))
		return
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username must not be empty"))
		return
	}

	account, err := h.users.Update(c.Request.Context(), actorID, targetID, usecase.UpdateUserInput{
		Username: req.Username,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserSummary(account))
}

// ChangePassword updates a user's password. The self path verifies the
// current password; the admin path sets it directly.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actorID, targetID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	var err error
	if actorID == targetID {
		err = h.users.ChangePassword(c.Request.Context(), targetID, req.CurrentPassword, req.NewPassword)
	} else {
		err = h.users.ForceSetPassword(c.Request.Context(), actorID, targetID, req.NewPassword)
	}
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// authorize resolves the actor and target ids and enforces the ownership
// rule. It writes the error response itself when access is denied.
func (h *UserHandler) authorize(c *gin.Context) (actorID, targetID string, ok bool) {
	actorID, exists := middleware.GetAuthenticatedUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return "", "", false
	}

	targetID = c.Param("id")
	if targetID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user id is required"))
		return "", "", false
	}

	roles, _ := middleware.AuthenticatedRoles(c)
	if !h.authorizer.CanAccessUser(actorID, roles, targetID) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient privileges"))
		return "", "", false
	}

	return actorID, targetID, true
}

func (h *UserHandler) respondUserError(c *gin.Context, err error) {
	respondWithMappedError(c, err, []errorCase{
		{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
		{err: usecase.ErrUsernameTaken, status: http.StatusConflict, message: "username already taken"},
		{err: usecase.ErrCurrentPasswordInvalid, status: http.StatusForbidden, message: "current password is incorrect"},
		{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient privileges"},
	}, http.StatusInternalServerError, "failed to process user request")
}
