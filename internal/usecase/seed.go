package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/repository"
)

// Seeder provisions the baseline roles the service assumes exist.
type Seeder struct {
	roles  port.RoleRepository
	logger *zap.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(roles port.RoleRepository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{roles: roles, logger: logger}
}

// EnsureDefaults creates the default and admin roles when absent. Safe to run
// on every startup; a concurrent replica losing the insert race is tolerated.
func (s *Seeder) EnsureDefaults(ctx context.Context) error {
	defaults := []struct {
		name        string
		description string
	}{
		{domain.RoleNameUser, "Default role for registered users"},
		{domain.RoleNameAdmin, "Administrative access"},
	}

	for _, def := range defaults {
		_, err := s.roles.GetByName(ctx, def.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup role %s: %w", def.name, err)
		}

		description := def.description
		id, err := s.roles.Create(ctx, domain.Role{Name: def.name, Description: &description})
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed role %s: %w", def.name, err)
		}

		s.logger.Info("seeded role", zap.String("name", def.name), zap.Int64("id", id))
	}

	return nil
}
