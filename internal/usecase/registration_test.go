package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/infra/security"
)

func newRegistrationFixture(t *testing.T) (*RegistrationService, *memUserRepository, *memRoleRepository, *capturePublisher) {
	t.Helper()

	users := newMemUserRepository()
	roles := newMemRoleRepository()
	publisher := &capturePublisher{}

	if _, err := roles.Create(context.Background(), domain.Role{Name: domain.RoleNameUser}); err != nil {
		t.Fatalf("seed default role: %v", err)
	}

	service := NewRegistrationService(users, roles, publisher, &memAuditRepository{}, nil, zaptest.NewLogger(t))
	return service, users, roles, publisher
}

func TestRegistrationServiceRegister(t *testing.T) {
	service, users, _, publisher := newRegistrationFixture(t)

	account, err := service.Register(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.User.Username != "alice" {
		t.Fatalf("unexpected username: %s", account.User.Username)
	}
	if account.User.PasswordHash != "" {
		t.Fatal("expected sanitized password hash in result")
	}
	if names := account.RoleNames(); len(names) != 1 || names[0] != domain.RoleNameUser {
		t.Fatalf("expected default role, got %v", names)
	}

	stored, err := users.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stored user lookup failed: %v", err)
	}
	if !security.VerifyPassword("pw1", stored.PasswordHash) {
		t.Fatal("stored hash does not verify the original password")
	}
	if !stored.IsActive {
		t.Fatal("expected new account to be active")
	}

	if len(publisher.registered) != 1 || publisher.registered[0].Username != "alice" {
		t.Fatalf("expected one registration event, got %+v", publisher.registered)
	}
}

func TestRegistrationServicePersistsRoleWithUser(t *testing.T) {
	service, users, roles, _ := newRegistrationFixture(t)

	defaultRole, err := roles.GetByName(context.Background(), domain.RoleNameUser)
	if err != nil {
		t.Fatalf("default role lookup failed: %v", err)
	}
	users.addRole(*defaultRole)

	account, err := service.Register(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// The directory must hold the default role right after registration, not
	// just the returned account snapshot.
	stored, err := users.ListRoles(context.Background(), account.User.ID)
	if err != nil {
		t.Fatalf("ListRoles returned error: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != domain.RoleNameUser {
		t.Fatalf("expected persisted default role, got %+v", stored)
	}
}

func TestRegistrationServiceDuplicateUsername(t *testing.T) {
	service, _, _, _ := newRegistrationFixture(t)

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	if _, err := service.Register(context.Background(), "alice", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegistrationServiceConcurrentSameUsername(t *testing.T) {
	service, users, _, _ := newRegistrationFixture(t)

	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Register(context.Background(), "alice", fmt.Sprintf("pw-%d", i))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrUsernameTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", successes)
	}

	count, err := users.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single stored user, got %d", count)
	}
}

func TestRegistrationServiceValidation(t *testing.T) {
	service, _, _, _ := newRegistrationFixture(t)

	if _, err := service.Register(context.Background(), "", "pw1"); err == nil {
		t.Fatal("expected error for empty username")
	}
	if _, err := service.Register(context.Background(), "alice", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestRegistrationServiceStrictPolicy(t *testing.T) {
	users := newMemUserRepository()
	roles := newMemRoleRepository()
	if _, err := roles.Create(context.Background(), domain.Role{Name: domain.RoleNameUser}); err != nil {
		t.Fatalf("seed default role: %v", err)
	}

	validator := security.StrictPasswordValidator(10, 3, 3)
	service := NewRegistrationService(users, roles, nil, nil, validator, zaptest.NewLogger(t))

	if _, err := service.Register(context.Background(), "alice", "pw1"); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}

	if _, err := service.Register(context.Background(), "alice", "vX9#qLm2!wRz7Kd"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}
