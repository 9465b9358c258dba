package accesskit

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. Entities live in flat maps keyed by id and
// associations are adjacency sets of id pairs, so there are no object cycles
// and every read returns a copy.
//
// A single RWMutex guards all state: a concurrent Decide observes either the
// pre- or post-mutation association set, never a partial one. MemStore is
// intended for tests and single-process deployments; SQLStore provides the
// durable equivalent.
type MemStore struct {
	mu sync.RWMutex

	permissions map[string]Permission
	roles       map[string]Role
	users       map[string]User

	rolePerms map[string]map[string]struct{} // role id -> permission id set
	userRoles map[string]map[string]struct{} // user id -> role id set

	audit []AuditRecord

	pageLimit int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		permissions: make(map[string]Permission),
		roles:       make(map[string]Role),
		users:       make(map[string]User),
		rolePerms:   make(map[string]map[string]struct{}),
		userRoles:   make(map[string]map[string]struct{}),
	}
}

// NewMemStoreWithConfig creates an empty in-memory store honoring the
// configured page limit for listings that pass none.
func NewMemStoreWithConfig(cfg Config) *MemStore {
	s := NewMemStore()
	s.pageLimit = cfg.PageLimit
	return s
}

func (s *MemStore) fallbackLimit() int {
	if s.pageLimit > 0 {
		return s.pageLimit
	}
	return defaultPageLimit
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func (s *MemStore) InsertPermission(ctx context.Context, p *Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.permissions {
		if existing.Name == p.Name {
			return NewError(ErrConflict, "permission name already exists").WithPermission(existing.ID)
		}
		if existing.Resource == p.Resource && existing.Action == p.Action {
			return NewError(ErrConflict, "permission pair already exists").WithPermission(existing.ID)
		}
	}
	s.permissions[p.ID] = *p
	return nil
}

func (s *MemStore) FindPermissionByID(ctx context.Context, id string) (*Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.permissions[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *MemStore) FindPermissionByName(ctx context.Context, name string) (*Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindPermissionByPair(ctx context.Context, resource, action string) (*Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions {
		if p.Resource == resource && p.Action == action {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpdatePermission(ctx context.Context, p *Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[p.ID]; !ok {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(p.ID)
	}
	for id, existing := range s.permissions {
		if id == p.ID {
			continue
		}
		if existing.Name == p.Name {
			return NewError(ErrConflict, "permission name already exists").WithPermission(existing.ID)
		}
		if existing.Resource == p.Resource && existing.Action == p.Action {
			return NewError(ErrConflict, "permission pair already exists").WithPermission(existing.ID)
		}
	}
	s.permissions[p.ID] = *p
	return nil
}

func (s *MemStore) DeletePermission(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[id]; !ok {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(id)
	}
	delete(s.permissions, id)
	// Association cleanup happens under the same lock as the delete.
	for roleID := range s.rolePerms {
		delete(s.rolePerms[roleID], id)
	}
	return nil
}

func (s *MemStore) ListPermissions(ctx context.Context, page PageParams) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageSlice(all, normalizePage(page, s.pageLimit)), nil
}

func (s *MemStore) ListResources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.permissions {
		seen[p.Resource] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (s *MemStore) ListActions(ctx context.Context, resource string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.permissions {
		if p.Resource == resource {
			seen[p.Action] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// ============================================================================
// ROLES
// ============================================================================

func (s *MemStore) InsertRole(ctx context.Context, r *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return NewError(ErrConflict, "role name already exists").WithRole(existing.ID)
		}
	}
	s.roles[r.ID] = *r
	return nil
}

func (s *MemStore) FindRoleByID(ctx context.Context, id string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.roles[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *MemStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpdateRole(ctx context.Context, r *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[r.ID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(r.ID)
	}
	for id, existing := range s.roles {
		if id != r.ID && existing.Name == r.Name {
			return NewError(ErrConflict, "role name already exists").WithRole(existing.ID)
		}
	}
	s.roles[r.ID] = *r
	return nil
}

func (s *MemStore) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(id)
	}
	delete(s.roles, id)
	delete(s.rolePerms, id)
	for userID := range s.userRoles {
		delete(s.userRoles[userID], id)
	}
	return nil
}

func (s *MemStore) ListRoles(ctx context.Context, page PageParams) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageSlice(all, normalizePage(page, s.pageLimit)), nil
}

func (s *MemStore) ListRolesBySystem(ctx context.Context, isSystem bool) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Role
	for _, r := range s.roles {
		if r.IsSystem == isSystem {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) AddRolePermission(ctx context.Context, roleID, permissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(roleID)
	}
	if _, ok := s.permissions[permissionID]; !ok {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(permissionID)
	}
	if s.rolePerms[roleID] == nil {
		s.rolePerms[roleID] = make(map[string]struct{})
	}
	s.rolePerms[roleID][permissionID] = struct{}{}
	return nil
}

func (s *MemStore) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(roleID)
	}
	// Validate the whole batch before touching the set: all-or-nothing.
	for _, id := range permissionIDs {
		if _, ok := s.permissions[id]; !ok {
			return NewError(ErrNotFound, "permission does not exist").WithRole(roleID).WithPermission(id)
		}
	}
	if s.rolePerms[roleID] == nil {
		s.rolePerms[roleID] = make(map[string]struct{})
	}
	for _, id := range permissionIDs {
		s.rolePerms[roleID][id] = struct{}{}
	}
	return nil
}

func (s *MemStore) RemoveRolePermission(ctx context.Context, roleID, permissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(roleID)
	}
	if _, ok := s.permissions[permissionID]; !ok {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(permissionID)
	}
	delete(s.rolePerms[roleID], permissionID)
	return nil
}

func (s *MemStore) ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Permission
	for id := range s.rolePerms[roleID] {
		if p, ok := s.permissions[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ============================================================================
// USERS
// ============================================================================

func (s *MemStore) InsertUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return NewError(ErrConflict, "username already exists").WithUser(existing.ID)
		}
		if existing.Email == u.Email {
			return NewError(ErrConflict, "email already exists").WithUser(existing.ID)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpdateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return NewError(ErrNotFound, "user does not exist").WithUser(u.ID)
	}
	for id, existing := range s.users {
		if id == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return NewError(ErrConflict, "username already exists").WithUser(existing.ID)
		}
		if existing.Email == u.Email {
			return NewError(ErrConflict, "email already exists").WithUser(existing.ID)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return NewError(ErrNotFound, "user does not exist").WithUser(id)
	}
	delete(s.users, id)
	delete(s.userRoles, id)
	return nil
}

func (s *MemStore) ListUsers(ctx context.Context, page PageParams) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageSlice(all, normalizePage(page, s.pageLimit)), nil
}

func (s *MemStore) AddUserRole(ctx context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return NewError(ErrNotFound, "user does not exist").WithUser(userID)
	}
	if _, ok := s.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(roleID)
	}
	if s.userRoles[userID] == nil {
		s.userRoles[userID] = make(map[string]struct{})
	}
	s.userRoles[userID][roleID] = struct{}{}
	return nil
}

func (s *MemStore) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return NewError(ErrNotFound, "user does not exist").WithUser(userID)
	}
	if _, ok := s.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role does not exist").WithRole(roleID)
	}
	delete(s.userRoles[userID], roleID)
	return nil
}

func (s *MemStore) ListUserRoles(ctx context.Context, userID string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Role
	for id := range s.userRoles[userID] {
		if r, ok := s.roles[id]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ============================================================================
// AUDIT
// ============================================================================

func (s *MemStore) AppendAudit(ctx context.Context, rec *AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, *rec)
	return nil
}

func (s *MemStore) ListAudit(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuditRecord
	for _, rec := range s.audit {
		if filter.ActorID != "" && rec.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		if filter.TargetID != "" && rec.TargetID != filter.TargetID {
			continue
		}
		if !filter.Since.IsZero() && rec.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && rec.Timestamp.After(filter.Until) {
			continue
		}
		out = append(out, rec)
	}
	// Newest first, matching the SQL store's ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	limit := filter.Limit
	if limit <= 0 {
		limit = s.fallbackLimit()
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func pageSlice[T any](all []T, page PageParams) []T {
	if page.Offset >= len(all) {
		return nil
	}
	all = all[page.Offset:]
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
