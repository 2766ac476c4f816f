package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/repository"
)

// memUserRepository is a mutex-guarded in-memory user store enforcing the
// same uniqueness semantics as the postgres implementation.
type memUserRepository struct {
	mu        sync.Mutex
	users     map[string]domain.User
	userRoles map[string][]int64
	roles     map[int64]domain.Role
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{
		users:     make(map[string]domain.User),
		userRoles: make(map[string][]int64),
		roles:     make(map[int64]domain.Role),
	}
}

func (m *memUserRepository) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

// CreateWithRoles mirrors the transactional postgres path: either both the
// user and its role assignments land, or neither does.
func (m *memUserRepository) CreateWithRoles(_ context.Context, user domain.User, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	if len(roleIDs) > 0 {
		m.userRoles[user.ID] = append([]int64(nil), roleIDs...)
	}
	return nil
}

func (m *memUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (m *memUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepository) List(_ context.Context, offset, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (m *memUserRepository) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUserRepository) Update(_ context.Context, id string, patch port.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Username != nil {
		for otherID, other := range m.users {
			if otherID != id && other.Username == *patch.Username {
				return repository.ErrConflict
			}
		}
		user.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	m.users[id] = user
	return nil
}

func (m *memUserRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *memUserRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *memUserRepository) ListRoles(_ context.Context, userID string) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.userRoles[userID]
	roles := make([]domain.Role, 0, len(ids))
	for _, id := range ids {
		if role, ok := m.roles[id]; ok {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *memUserRepository) ReplaceRoles(_ context.Context, userID string, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (m *memUserRepository) addRole(role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
}

// memRoleRepository is a minimal in-memory role store.
type memRoleRepository struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]domain.Role
	perms  map[int64][]int64
	all    map[int64]domain.Permission
}

func newMemRoleRepository() *memRoleRepository {
	return &memRoleRepository{
		nextID: 1,
		roles:  make(map[int64]domain.Role),
		perms:  make(map[int64][]int64),
		all:    make(map[int64]domain.Permission),
	}
}

func (m *memRoleRepository) Create(_ context.Context, role domain.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return 0, repository.ErrConflict
		}
	}
	role.ID = m.nextID
	m.nextID++
	m.roles[role.ID] = role
	return role.ID, nil
}

func (m *memRoleRepository) GetByID(_ context.Context, id int64) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := role
	return &copied, nil
}

func (m *memRoleRepository) GetByName(_ context.Context, name string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Name == name {
			copied := role
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRoleRepository) List(context.Context) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *memRoleRepository) Update(_ context.Context, id int64, patch port.RolePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		for otherID, other := range m.roles {
			if otherID != id && other.Name == *patch.Name {
				return repository.ErrConflict
			}
		}
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = patch.Description
	}
	m.roles[id] = role
	return nil
}

func (m *memRoleRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.perms, id)
	return nil
}

func (m *memRoleRepository) ListPermissions(_ context.Context, roleID int64) ([]domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.perms[roleID]
	permissions := make([]domain.Permission, 0, len(ids))
	for _, id := range ids {
		if permission, ok := m.all[id]; ok {
			permissions = append(permissions, permission)
		}
	}
	return permissions, nil
}

func (m *memRoleRepository) ReplacePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

// memPermissionRepository is a minimal in-memory permission store.
type memPermissionRepository struct {
	mu          sync.Mutex
	nextID      int64
	permissions map[int64]domain.Permission
}

func newMemPermissionRepository() *memPermissionRepository {
	return &memPermissionRepository{nextID: 1, permissions: make(map[int64]domain.Permission)}
}

func (m *memPermissionRepository) Create(_ context.Context, permission domain.Permission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.Name == permission.Name {
			return 0, repository.ErrConflict
		}
	}
	permission.ID = m.nextID
	m.nextID++
	m.permissions[permission.ID] = permission
	return permission.ID, nil
}

func (m *memPermissionRepository) GetByID(_ context.Context, id int64) (*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	permission, ok := m.permissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := permission
	return &copied, nil
}

func (m *memPermissionRepository) GetByName(_ context.Context, name string) (*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, permission := range m.permissions {
		if permission.Name == name {
			copied := permission
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPermissionRepository) List(context.Context) ([]domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	permissions := make([]domain.Permission, 0, len(m.permissions))
	for _, permission := range m.permissions {
		permissions = append(permissions, permission)
	}
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].Name < permissions[j].Name })
	return permissions, nil
}

func (m *memPermissionRepository) Update(_ context.Context, id int64, patch port.PermissionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	permission, ok := m.permissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		permission.Name = *patch.Name
	}
	if patch.Description != nil {
		permission.Description = patch.Description
	}
	m.permissions[id] = permission
	return nil
}

func (m *memPermissionRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.permissions, id)
	return nil
}

// memAuditRepository captures audit entries for assertions.
type memAuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAuditRepository) Record(_ context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]domain.AuditEntry, 0)
	for _, entry := range m.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *memAuditRepository) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// capturePublisher records published events.
type capturePublisher struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	passwords  []domain.PasswordChangedEvent
	roleSwaps  []domain.RolesReplacedEvent
	deletions  []domain.UserDeletedEvent
}

func (p *capturePublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *capturePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwords = append(p.passwords, event)
	return nil
}

func (p *capturePublisher) PublishRolesReplaced(_ context.Context, event domain.RolesReplacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roleSwaps = append(p.roleSwaps, event)
	return nil
}

func (p *capturePublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletions = append(p.deletions, event)
	return nil
}

var (
	_ port.UserRepository       = (*memUserRepository)(nil)
	_ port.RoleRepository       = (*memRoleRepository)(nil)
	_ port.PermissionRepository = (*memPermissionRepository)(nil)
	_ port.AuditRepository      = (*memAuditRepository)(nil)
	_ port.EventPublisher       = (*capturePublisher)(nil)
)
