package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/repository"
)

// fakeClock is a mutable clock for driving lockout and expiry windows.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// plainHasher is a deterministic stand-in for the Argon2 hasher.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) {
	return "h:" + plaintext, nil
}

func (plainHasher) Verify(plaintext, encoded string) (bool, error) {
	return encoded == "h:"+plaintext, nil
}

// memCache is an in-memory port.Cache with the same prefix semantics as
// the Redis implementation.
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

var _ port.Cache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return "", port.ErrCacheMiss
	}
	return value, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memCache) contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// memStore holds the whole authorization graph behind the repository
// fakes, so grants written through one port are visible through the
// others the same way the shared database makes them.
type memStore struct {
	mu        sync.Mutex
	roles     map[string]domain.Role
	perms     map[string]domain.Permission
	rolePerms []domain.RolePermission
	userRoles []domain.UserRole
	userPerms []domain.UserPermission
}

func newMemStore() *memStore {
	return &memStore{
		roles: make(map[string]domain.Role),
		perms: make(map[string]domain.Permission),
	}
}

func (s *memStore) addRole(role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
}

func (s *memStore) addPermission(permission domain.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms[permission.ID] = permission
}

type memRoleRepo struct {
	s        *memStore
	getCalls int
}

var _ port.RoleRepository = (*memRoleRepo)(nil)

func (r *memRoleRepo) Create(_ context.Context, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return repository.ErrConflict
		}
	}
	r.s.roles[role.ID] = role
	return nil
}

func (r *memRoleRepo) GetByID(_ context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.getCalls++
	role, ok := r.s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := role
	return &copied, nil
}

func (r *memRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if strings.EqualFold(role.Name, name) {
			copied := role
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	roles := make([]domain.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r *memRoleRepo) ListActive(ctx context.Context) ([]domain.Role, error) {
	all, _ := r.List(ctx)
	active := all[:0]
	for _, role := range all {
		if role.IsActive {
			active = append(active, role)
		}
	}
	return active, nil
}

func (r *memRoleRepo) ListByUser(_ context.Context, userID string) ([]domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var roles []domain.Role
	for _, grant := range r.s.userRoles {
		if grant.UserID == userID && !grant.IsDeleted {
			if role, ok := r.s.roles[grant.RoleID]; ok {
				roles = append(roles, role)
			}
		}
	}
	return roles, nil
}

func (r *memRoleRepo) Update(_ context.Context, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.roles[role.ID] = role
	return nil
}

func (r *memRoleRepo) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	role.IsActive = active
	r.s.roles[id] = role
	return nil
}

func (r *memRoleRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.roles, id)
	return nil
}

type memPermissionRepo struct {
	s           *memStore
	listByRole  int
	listByUser  int
	getByIDCall int
}

var _ port.PermissionRepository = (*memPermissionRepo)(nil)

func (r *memPermissionRepo) Create(_ context.Context, permission domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.perms {
		if strings.EqualFold(existing.Name, permission.Name) {
			return repository.ErrConflict
		}
	}
	r.s.perms[permission.ID] = permission
	return nil
}

func (r *memPermissionRepo) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.getByIDCall++
	permission, ok := r.s.perms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := permission
	return &copied, nil
}

func (r *memPermissionRepo) GetByName(_ context.Context, name string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, permission := range r.s.perms {
		if strings.EqualFold(permission.Name, name) {
			copied := permission
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPermissionRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := r.GetByName(ctx, name)
	if err == nil {
		return true, nil
	}
	if err == repository.ErrNotFound {
		return false, nil
	}
	return false, err
}

func (r *memPermissionRepo) List(_ context.Context) ([]domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	permissions := make([]domain.Permission, 0, len(r.s.perms))
	for _, permission := range r.s.perms {
		permissions = append(permissions, permission)
	}
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].Name < permissions[j].Name })
	return permissions, nil
}

func (r *memPermissionRepo) ListActive(ctx context.Context) ([]domain.Permission, error) {
	all, _ := r.List(ctx)
	active := all[:0]
	for _, permission := range all {
		if permission.IsActive {
			active = append(active, permission)
		}
	}
	return active, nil
}

func (r *memPermissionRepo) ListByGroup(ctx context.Context, group string) ([]domain.Permission, error) {
	all, _ := r.List(ctx)
	var matched []domain.Permission
	for _, permission := range all {
		if strings.EqualFold(permission.Group, group) {
			matched = append(matched, permission)
		}
	}
	return matched, nil
}

func (r *memPermissionRepo) ListByRole(_ context.Context, roleID string) ([]domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.listByRole++
	var permissions []domain.Permission
	for _, grant := range r.s.rolePerms {
		if grant.RoleID == roleID && !grant.IsDeleted {
			if permission, ok := r.s.perms[grant.PermissionID]; ok {
				permissions = append(permissions, permission)
			}
		}
	}
	return permissions, nil
}

func (r *memPermissionRepo) ListByUser(_ context.Context, userID string) ([]domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.listByUser++
	var permissions []domain.Permission
	for _, grant := range r.s.userPerms {
		if grant.UserID == userID && !grant.IsDeleted {
			if permission, ok := r.s.perms[grant.PermissionID]; ok {
				permissions = append(permissions, permission)
			}
		}
	}
	return permissions, nil
}

func (r *memPermissionRepo) Update(_ context.Context, permission domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[permission.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.perms[permission.ID] = permission
	return nil
}

func (r *memPermissionRepo) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	permission, ok := r.s.perms[id]
	if !ok {
		return repository.ErrNotFound
	}
	permission.IsActive = active
	r.s.perms[id] = permission
	return nil
}

func (r *memPermissionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.perms, id)
	return nil
}

type memGrantRepo struct {
	s *memStore

	// batchErr, when set, fails CreateRolePermissions before anything is
	// applied, the way a rolled-back transaction would.
	batchErr error
}

var _ port.GrantRepository = (*memGrantRepo)(nil)

func (r *memGrantRepo) CreateRolePermission(_ context.Context, grant domain.RolePermission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rolePerms = append(r.s.rolePerms, grant)
	return nil
}

func (r *memGrantRepo) CreateRolePermissions(_ context.Context, grants []domain.RolePermission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, grant := range grants {
		for _, existing := range r.s.rolePerms {
			if existing.RoleID == grant.RoleID && existing.PermissionID == grant.PermissionID && !existing.IsDeleted {
				return repository.ErrConflict
			}
		}
	}
	r.s.rolePerms = append(r.s.rolePerms, grants...)
	return nil
}

func (r *memGrantRepo) RolePermissionExists(_ context.Context, roleID, permissionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, grant := range r.s.rolePerms {
		if grant.RoleID == roleID && grant.PermissionID == permissionID && !grant.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGrantRepo) ListRolePermissionIDs(_ context.Context, roleID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, grant := range r.s.rolePerms {
		if grant.RoleID == roleID && !grant.IsDeleted {
			ids = append(ids, grant.PermissionID)
		}
	}
	return ids, nil
}

func (r *memGrantRepo) DeleteRolePermission(_ context.Context, roleID, permissionID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.rolePerms {
		grant := &r.s.rolePerms[i]
		if grant.RoleID == roleID && grant.PermissionID == permissionID && !grant.IsDeleted {
			grant.MarkDeleted(now)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memGrantRepo) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string, now time.Time) error {
	desired := make(map[string]bool, len(permissionIDs))
	for _, id := range permissionIDs {
		desired[id] = true
	}

	current, _ := r.ListRolePermissionIDs(ctx, roleID)
	for _, id := range current {
		if !desired[id] {
			_ = r.DeleteRolePermission(ctx, roleID, id, now)
		}
	}
	for _, id := range permissionIDs {
		exists, _ := r.RolePermissionExists(ctx, roleID, id)
		if !exists {
			_ = r.CreateRolePermission(ctx, domain.RolePermission{
				ID: "grant-" + id, RoleID: roleID, PermissionID: id, CreatedAt: now,
			})
		}
	}
	return nil
}

func (r *memGrantRepo) CreateUserRole(_ context.Context, grant domain.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userRoles = append(r.s.userRoles, grant)
	return nil
}

func (r *memGrantRepo) UserRoleExists(_ context.Context, userID, roleID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, grant := range r.s.userRoles {
		if grant.UserID == userID && grant.RoleID == roleID && !grant.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGrantRepo) DeleteUserRole(_ context.Context, userID, roleID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.userRoles {
		grant := &r.s.userRoles[i]
		if grant.UserID == userID && grant.RoleID == roleID && !grant.IsDeleted {
			grant.MarkDeleted(now)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memGrantRepo) CreateUserPermission(_ context.Context, grant domain.UserPermission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userPerms = append(r.s.userPerms, grant)
	return nil
}

func (r *memGrantRepo) UserPermissionExists(_ context.Context, userID, permissionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, grant := range r.s.userPerms {
		if grant.UserID == userID && grant.PermissionID == permissionID && !grant.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGrantRepo) DeleteUserPermission(_ context.Context, userID, permissionID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.userPerms {
		grant := &r.s.userPerms[i]
		if grant.UserID == userID && grant.PermissionID == permissionID && !grant.IsDeleted {
			grant.MarkDeleted(now)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memGrantRepo) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var purged int64

	keepRolePerms := r.s.rolePerms[:0]
	for _, grant := range r.s.rolePerms {
		if grant.IsDeleted && grant.DeletedAt != nil && grant.DeletedAt.Before(cutoff) {
			purged++
			continue
		}
		keepRolePerms = append(keepRolePerms, grant)
	}
	r.s.rolePerms = keepRolePerms

	keepUserRoles := r.s.userRoles[:0]
	for _, grant := range r.s.userRoles {
		if grant.IsDeleted && grant.DeletedAt != nil && grant.DeletedAt.Before(cutoff) {
			purged++
			continue
		}
		keepUserRoles = append(keepUserRoles, grant)
	}
	r.s.userRoles = keepUserRoles

	keepUserPerms := r.s.userPerms[:0]
	for _, grant := range r.s.userPerms {
		if grant.IsDeleted && grant.DeletedAt != nil && grant.DeletedAt.Before(cutoff) {
			purged++
			continue
		}
		keepUserPerms = append(keepUserPerms, grant)
	}
	r.s.userPerms = keepUserPerms

	return purged, nil
}

// memUserRepo stores users and their security questions.
type memUserRepo struct {
	mu        sync.Mutex
	users     map[string]domain.User
	questions map[string][]domain.StoredSecurityQuestion
}

var _ port.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:     make(map[string]domain.User),
		questions: make(map[string][]domain.StoredSecurityQuestion),
	}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Username, username) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) UpdateLockState(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.IsLocked = user.IsLocked
	stored.LockoutEnd = user.LockoutEnd
	stored.FailedAttempts = user.FailedAttempts
	r.users[user.ID] = stored
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.PasswordHash = user.PasswordHash
	stored.PasswordChangeAt = user.PasswordChangeAt
	r.users[user.ID] = stored
	return nil
}

func (r *memUserRepo) SetTwoFactorSecret(_ context.Context, userID string, secret *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.TwoFactorSecret = secret
	r.users[userID] = stored
	return nil
}

func (r *memUserRepo) ReplaceSecurityQuestions(_ context.Context, userID string, questions []domain.StoredSecurityQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]domain.StoredSecurityQuestion, len(questions))
	copy(copied, questions)
	r.questions[userID] = copied
	return nil
}

func (r *memUserRepo) ListSecurityQuestions(_ context.Context, userID string) ([]domain.StoredSecurityQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	questions := make([]domain.StoredSecurityQuestion, len(r.questions[userID]))
	copy(questions, r.questions[userID])
	return questions, nil
}

func (r *memUserRepo) UpdateSecurityQuestion(_ context.Context, question domain.StoredSecurityQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.questions[question.UserID]
	for i := range rows {
		if rows[i].ID == question.ID {
			rows[i] = question
			return nil
		}
	}
	return repository.ErrNotFound
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

var _ port.LoginAttemptRepository = (*memAttemptRepo)(nil)

func (r *memAttemptRepo) Record(_ context.Context, attempt domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *memAttemptRepo) ListByUser(_ context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		attempt := r.attempts[i]
		if attempt.UserID != nil && *attempt.UserID == userID {
			matched = append(matched, attempt)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

type memRateLimit struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

var _ port.RateLimitStore = (*memRateLimit)(nil)

func newMemRateLimit() *memRateLimit {
	return &memRateLimit{attempts: make(map[string][]time.Time)}
}

func (r *memRateLimit) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[identifier] = append(r.attempts[identifier], at)
	return nil
}

func (r *memRateLimit) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, at := range r.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			count++
		}
	}
	return count, nil
}

func (r *memRateLimit) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[identifier][:0]
	for _, at := range r.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	r.attempts[identifier] = kept
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

var _ port.EventPublisher = (*capturePublisher)(nil)

func (p *capturePublisher) Publish(_ context.Context, event domain.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType string) []domain.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []domain.NotificationEvent
	for _, event := range p.events {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeTwoFactor struct {
	secret    string
	validCode string
}

var _ port.TwoFactorProvider = (*fakeTwoFactor)(nil)

func (f *fakeTwoFactor) GenerateSecret(accountName string) (string, string, error) {
	return f.secret, "otpauth://totp/authz:" + accountName + "?secret=" + f.secret, nil
}

func (f *fakeTwoFactor) VerifyCode(code, secret string) bool {
	return secret == f.secret && code == f.validCode
}
