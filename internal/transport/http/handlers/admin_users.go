package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
	"github.com/attack-monitor/iam-service/internal/usecase"
)

// AdminUserHandler exposes the administrative user directory operations.
// Routes using it must be guarded by RequireAdmin.
type AdminUserHandler struct {
	users *usecase.UserService
	audit port.AuditRepository
}

func NewAdminUserHandler(users *usecase.UserService, audit port.AuditRepository) *AdminUserHandler {
	return &AdminUserHandler{users: users, audit: audit}
}

// List returns a page of the user directory.
func (h *AdminUserHandler) List(c *gin.Context) {
	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 50)

	page, err := h.users.List(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list users"))
		return
	}

	resp := UserListResponse{
		Users:  make([]UserSummary, 0, len(page.Users)),
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}
	for _, user := range page.Users {
		resp.Users = append(resp.Users, UserSummary{
			ID:        user.ID,
			Username:  user.Username,
			IsActive:  user.IsActive,
			CreatedAt: user.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// Create provisions a user with an explicit role set.
func (h *AdminUserHandler) Create(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)

	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}

	account, err := h.users.Create(c.Request.Context(), actorID, usecase.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		IsActive: req.IsActive,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserSummary(account))
}

// Delete removes a user. Admins cannot delete their own account.
func (h *AdminUserHandler) Delete(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)
	targetID := c.Param("id")

	if err := h.users.Delete(c.Request.Context(), actorID, targetID); err != nil {
		h.respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// ReplaceRoles swaps the full role set of a user.
func (h *AdminUserHandler) ReplaceRoles(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)
	targetID := c.Param("id")

	var req UserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid roles payload"))
		return
	}

	account, err := h.users.ReplaceRoles(c.Request.Context(), actorID, targetID, req.RoleIDs)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserSummary(account))
}

// ListAudit returns the most recent audit entries recorded for a user.
func (h *AdminUserHandler) ListAudit(c *gin.Context) {
	targetID := c.Param("id")
	limit := queryInt(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := h.audit.ListByUser(c.Request.Context(), targetID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list audit entries"))
		return
	}

	resp := AuditListResponse{Entries: make([]AuditEntryPayload, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, AuditEntryPayload{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			CreatedAt: entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AdminUserHandler) respondAdminError(c *gin.Context, err error) {
	respondWithMappedError(c, err, []errorCase{
		{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
		{err: usecase.ErrRoleNotFound, status: http.StatusNotFound, message: "role not found"},
		{err: usecase.ErrUsernameTaken, status: http.StatusConflict, message: "username already taken"},
		{err: usecase.ErrSelfDeletion, status: http.StatusForbidden, message: "cannot delete own account"},
		{err: usecase.ErrForbidden, status: http.StatusForbidden, message: "insufficient privileges"},
	}, http.StatusInternalServerError, "failed to process user request")
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
