package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/usecase"
)

// RoleHandler exposes administrative role management endpoints.
type RoleHandler struct {
	roles *usecase.RoleService
}

func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list roles"))
		return
	}

	resp := RoleListResponse{Roles: make([]RolePayload, 0, len(roles))}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, newRolePayload(role))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	role, err := h.roles.Get(c.Request.Context(), id)
	if err != nil {
		h.respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newRolePayload(*role))
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.Create(c.Request.Context(), usecase.RoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newRolePayload(*role))
}

func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.Update(c.Request.Context(), id, usecase.RoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newRolePayload(*role))
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.roles.Delete(c.Request.Context(), id); err != nil {
		h.respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

func (h *RoleHandler) ListPermissions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	permissions, err := h.roles.ListPermissions(c.Request.Context(), id)
	if err != nil {
		h.respondRoleError(c, err)
		return
	}

	resp := PermissionListResponse{Permissions: make([]PermissionPayload, 0, len(permissions))}
	for _, permission := range permissions {
		resp.Permissions = append(resp.Permissions, newPermissionPayload(permission))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RoleHandler) ReplacePermissions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req RolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permissions payload"))
		return
	}

	permissions, err := h.roles.ReplacePermissions(c.Request.Context(), id, req.PermissionIDs)
	if err != nil {
		h.respondRoleError(c, err)
		return
	}

	resp := PermissionListResponse{Permissions: make([]PermissionPayload, 0, len(permissions))}
	for _, permission := range permissions {
		resp.Permissions = append(resp.Permissions, newPermissionPayload(permission))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RoleHandler) respondRoleError(c *gin.Context, err error) {
	respondWithMappedError(c, err, []errorCase{
		{err: usecase.ErrRoleNotFound, status: http.StatusNotFound, message: "role not found"},
		{err: usecase.ErrPermissionNotFound, status: http.StatusNotFound, message: "permission not found"},
		{err: usecase.ErrRoleExists, status: http.StatusConflict, message: "role name already exists"},
	}, http.StatusInternalServerError, "failed to process role request")
}

// pathID parses the numeric :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid id"))
		return 0, false
	}
	return id, true
}
