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
	// ErrRoleNotFound is returned when the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleExists indicates another role already holds the name.
	ErrRoleExists = errors.New("role already exists")
)

// RoleInput carries the fields of a role create or update request.
type RoleInput struct {
	Name        string
	Description *string
}

// RoleService manages role definitions and their permission attachments.
type RoleService struct {
	roles       port.RoleRepository
	permissions port.PermissionRepository
}

// NewRoleService constructs RoleService.
func NewRoleService(roles port.RoleRepository, permissions port.PermissionRepository) *RoleService {
	return &RoleService{roles: roles, permissions: permissions}
}

// List returns every role sorted by name.
func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// Get resolves a role by id.
func (s *RoleService) Get(ctx context.Context, id int64) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

// Create defines a new role.
func (s *RoleService) Create(ctx context.Context, input RoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	role := domain.Role{Name: name, Description: input.Description}
	id, err := s.roles.Create(ctx, role)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	return s.Get(ctx, id)
}

// Update modifies an existing role's name or description.
func (s *RoleService) Update(ctx context.Context, id int64, input RoleInput) (*domain.Role, error) {
	patch := port.RolePatch{Description: input.Description}
	if name := strings.TrimSpace(input.Name); name != "" {
		patch.Name = &name
	}

	if err := s.roles.Update(ctx, id, patch); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	return s.Get(ctx, id)
}

// Delete removes a role and its assignments.
func (s *RoleService) Delete(ctx context.Context, id int64) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// ListPermissions returns the permissions attached to a role.
func (s *RoleService) ListPermissions(ctx context.Context, roleID int64) ([]domain.Permission, error) {
	if _, err := s.Get(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roles.ListPermissions(ctx, roleID)
}

// ReplacePermissions swaps a role's permission set wholesale.
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]domain.Permission, error) {
	if _, err := s.Get(ctx, roleID); err != nil {
		return nil, err
	}

	for _, permissionID := range permissionIDs {
		if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("permission %d: %w", permissionID, ErrPermissionNotFound)
			}
			return nil, fmt.Errorf("lookup permission %d: %w", permissionID, err)
		}
	}

	if err := s.roles.ReplacePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, fmt.Errorf("replace permissions: %w", err)
	}

	return s.roles.ListPermissions(ctx, roleID)
}
