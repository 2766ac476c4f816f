package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/infra/security"
)

func newUserFixture(t *testing.T) (*UserService, *memUserRepository, *memRoleRepository, *capturePublisher) {
	t.Helper()

	users := newMemUserRepository()
	roles := newMemRoleRepository()
	publisher := &capturePublisher{}
	service := NewUserService(users, roles, publisher, &memAuditRepository{}, nil, zaptest.NewLogger(t))
	return service, users, roles, publisher
}

func TestUserServiceChangePassword(t *testing.T) {
	service, users, _, publisher := newUserFixture(t)
	user := seedUser(t, users, "alice", "old-pass", true)

	if err := service.ChangePassword(context.Background(), user.ID, "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if !security.VerifyPassword("new-pass", stored.PasswordHash) {
		t.Fatal("new password does not verify")
	}
	if security.VerifyPassword("old-pass", stored.PasswordHash) {
		t.Fatal("old password still verifies")
	}

	if len(publisher.passwords) != 1 || publisher.passwords[0].Forced {
		t.Fatalf("expected one unforced password event, got %+v", publisher.passwords)
	}
}

func TestUserServiceChangePasswordWrongCurrent(t *testing.T) {
	service, users, _, _ := newUserFixture(t)
	user := seedUser(t, users, "alice", "old-pass", true)

	err := service.ChangePassword(context.Background(), user.ID, "wrong", "new-pass")
	if !errors.Is(err, ErrCurrentPasswordInvalid) {
		t.Fatalf("expected ErrCurrentPasswordInvalid, got %v", err)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if !security.VerifyPassword("old-pass", stored.PasswordHash) {
		t.Fatal("password should be unchanged after failed attempt")
	}
}

func TestUserServiceForceSetPassword(t *testing.T) {
	service, users, _, publisher := newUserFixture(t)
	user := seedUser(t, users, "alice", "old-pass", true)

	if err := service.ForceSetPassword(context.Background(), "admin-1", user.ID, "reset-pass"); err != nil {
		t.Fatalf("ForceSetPassword returned error: %v", err)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if !security.VerifyPassword("reset-pass", stored.PasswordHash) {
		t.Fatal("forced password does not verify")
	}

	if len(publisher.passwords) != 1 || !publisher.passwords[0].Forced {
		t.Fatalf("expected one forced password event, got %+v", publisher.passwords)
	}
	if publisher.passwords[0].ChangedBy != "admin-1" {
		t.Fatalf("unexpected changed_by: %s", publisher.passwords[0].ChangedBy)
	}
}

func TestUserServiceDeleteSelfGuard(t *testing.T) {
	service, users, _, _ := newUserFixture(t)
	admin := seedUser(t, users, "root", "pw", true)

	if err := service.Delete(context.Background(), admin.ID, admin.ID); !errors.Is(err, ErrSelfDeletion) {
		t.Fatalf("expected ErrSelfDeletion, got %v", err)
	}

	if _, err := users.GetByID(context.Background(), admin.ID); err != nil {
		t.Fatalf("admin should still exist: %v", err)
	}
}

func TestUserServiceDelete(t *testing.T) {
	service, users, _, publisher := newUserFixture(t)
	admin := seedUser(t, users, "root", "pw", true)
	target := seedUser(t, users, "alice", "pw", true)

	if err := service.Delete(context.Background(), admin.ID, target.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := users.GetByID(context.Background(), target.ID); err == nil {
		t.Fatal("expected target to be gone")
	}

	if len(publisher.deletions) != 1 || publisher.deletions[0].Username != "alice" {
		t.Fatalf("expected one deletion event, got %+v", publisher.deletions)
	}

	if err := service.Delete(context.Background(), admin.ID, target.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on repeat delete, got %v", err)
	}
}

func TestUserServiceUpdate(t *testing.T) {
	service, users, _, _ := newUserFixture(t)
	user := seedUser(t, users, "alice", "pw", true)
	seedUser(t, users, "bob", "pw", true)

	newName := "alice2"
	account, err := service.Update(context.Background(), "admin-1", user.ID, UpdateUserInput{Username: &newName})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if account.User.Username != "alice2" {
		t.Fatalf("unexpected username: %s", account.User.Username)
	}

	taken := "bob"
	if _, err := service.Update(context.Background(), "admin-1", user.ID, UpdateUserInput{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	inactive := false
	account, err = service.Update(context.Background(), "admin-1", user.ID, UpdateUserInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update is_active returned error: %v", err)
	}
	if account.User.IsActive {
		t.Fatal("expected account to be deactivated")
	}
}

func TestUserServiceReplaceRoles(t *testing.T) {
	service, users, roles, publisher := newUserFixture(t)
	user := seedUser(t, users, "alice", "pw", true)

	adminID, err := roles.Create(context.Background(), domain.Role{Name: "admin"})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	users.addRole(domain.Role{ID: adminID, Name: "admin"})

	account, err := service.ReplaceRoles(context.Background(), "admin-1", user.ID, []int64{adminID})
	if err != nil {
		t.Fatalf("ReplaceRoles returned error: %v", err)
	}
	if names := account.RoleNames(); len(names) != 1 || names[0] != "admin" {
		t.Fatalf("unexpected roles: %v", names)
	}

	if _, err := service.ReplaceRoles(context.Background(), "admin-1", user.ID, []int64{999}); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	if len(publisher.roleSwaps) != 1 {
		t.Fatalf("expected one roles replaced event, got %d", len(publisher.roleSwaps))
	}

	// Empty set clears every assignment.
	account, err = service.ReplaceRoles(context.Background(), "admin-1", user.ID, nil)
	if err != nil {
		t.Fatalf("ReplaceRoles clear returned error: %v", err)
	}
	if len(account.Roles) != 0 {
		t.Fatalf("expected cleared roles, got %v", account.RoleNames())
	}
}

func TestUserServiceCreateDefaultsRole(t *testing.T) {
	service, users, roles, _ := newUserFixture(t)

	userRoleID, err := roles.Create(context.Background(), domain.Role{Name: domain.RoleNameUser})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	users.addRole(domain.Role{ID: userRoleID, Name: domain.RoleNameUser})

	account, err := service.Create(context.Background(), "admin-1", CreateUserInput{
		Username: "carol",
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if names := account.RoleNames(); len(names) != 1 || names[0] != domain.RoleNameUser {
		t.Fatalf("expected default role assignment, got %v", names)
	}
}

func TestUserServiceListPagination(t *testing.T) {
	service, users, _, _ := newUserFixture(t)
	seedUser(t, users, "alice", "pw", true)
	seedUser(t, users, "bob", "pw", true)
	seedUser(t, users, "carol", "pw", true)

	page, err := service.List(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(page.Users) != 2 {
		t.Fatalf("expected 2 users on page, got %d", len(page.Users))
	}
	if page.Total != 3 {
		t.Fatalf("expected total 3, got %d", page.Total)
	}
	for _, user := range page.Users {
		if user.PasswordHash != "" {
			t.Fatal("expected sanitized users in listing")
		}
	}
}
