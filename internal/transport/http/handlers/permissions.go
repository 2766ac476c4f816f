package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/usecase"
)

// PermissionHandler exposes administrative permission management endpoints.
type PermissionHandler struct {
	permissions *usecase.PermissionService
}

func NewPermissionHandler(permissions *usecase.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

func (h *PermissionHandler) List(c *gin.Context) {
	permissions, err := h.permissions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list permissions"))
		return
	}

	resp := PermissionListResponse{Permissions: make([]PermissionPayload, 0, len(permissions))}
	for _, permission := range permissions {
		resp.Permissions = append(resp.Permissions, newPermissionPayload(permission))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	permission, err := h.permissions.Get(c.Request.Context(), id)
	if err != nil {
		h.respondPermissionError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPermissionPayload(*permission))
}

func (h *PermissionHandler) Create(c *gin.Context) {
	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.permissions.Create(c.Request.Context(), usecase.PermissionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondPermissionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newPermissionPayload(*permission))
}

func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.permissions.Update(c.Request.Context(), id, usecase.PermissionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondPermissionError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPermissionPayload(*permission))
}

func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.permissions.Delete(c.Request.Context(), id); err != nil {
		h.respondPermissionError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "permission deleted"})
}

func (h *PermissionHandler) respondPermissionError(c *gin.Context, err error) {
	respondWithMappedError(c, err, []errorCase{
		{err: usecase.ErrPermissionNotFound, status: http.StatusNotFound, message: "permission not found"},
		{err: usecase.ErrPermissionExists, status: http.StatusConflict, message: "permission name already exists"},
	}, http.StatusInternalServerError, "failed to process permission request")
}
