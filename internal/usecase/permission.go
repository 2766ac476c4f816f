package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/repository"
)

var (
	// ErrPermissionNotFound is returned when the referenced permission does not exist.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrPermissionExists indicates another permission already holds the name.
	ErrPermissionExists = errors.New("permission already exists")
)

// PermissionInput carries the fields of a permission create or update request.
type PermissionInput struct {
	Name        string
	Description *string
}

// PermissionService manages permission definitions.
type PermissionService struct {
	permissions port.PermissionRepository
}

// NewPermissionService constructs PermissionService.
func NewPermissionService(permissions port.PermissionRepository) *PermissionService {
	return &PermissionService{permissions: permissions}
}

// List returns every permission sorted by name.
func (s *PermissionService) List(ctx context.Context) ([]domain.Permission, error) {
	return s.permissions.List(ctx)
}

// Get resolves a permission by id.
func (s *PermissionService) Get(ctx context.Context, id int64) (*domain.Permission, error) {
	permission, err := s.permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("lookup permission: %w", err)
	}
	return permission, nil
}

// Create defines a new permission.
func (s *PermissionService) Create(ctx context.Context, input PermissionInput) (*domain.Permission, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("permission name is required")
	}

	permission := domain.Permission{Name: name, Description: input.Description}
	id, err := s.permissions.Create(ctx, permission)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	return s.Get(ctx, id)
}

// Update modifies an existing permission's name or description.
func (s *PermissionService) Update(ctx context.Context, id int64, input PermissionInput) (*domain.Permission, error) {
	patch := port.PermissionPatch{Description: input.Description}
	if name := strings.TrimSpace(input.Name); name != "" {
		patch.Name = &name
	}

	if err := s.permissions.Update(ctx, id, patch); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPermissionNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("update permission: %w", err)
	}

	return s.Get(ctx, id)
}

// Delete removes a permission and its role attachments.
func (s *PermissionService) Delete(ctx context.Context, id int64) error {
	if err := s.permissions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}
