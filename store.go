package accesskit

import "context"

// defaultPageLimit bounds listings when the caller does not set one.
const defaultPageLimit = 100

// PermissionStore persists permissions and their computed views.
//
// Find lookups return (nil, nil) when the entity is absent; absence is not
// an error at the store level. Insert and Update return ErrConflict when a
// uniqueness invariant would be violated. DeletePermission removes the
// permission and every role edge referencing it in one atomic step.
type PermissionStore interface {
	InsertPermission(ctx context.Context, p *Permission) error
	FindPermissionByID(ctx context.Context, id string) (*Permission, error)
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	FindPermissionByPair(ctx context.Context, resource, action string) (*Permission, error)
	UpdatePermission(ctx context.Context, p *Permission) error
	DeletePermission(ctx context.Context, id string) error
	ListPermissions(ctx context.Context, page PageParams) ([]Permission, error)
	ListResources(ctx context.Context) ([]string, error)
	ListActions(ctx context.Context, resource string) ([]string, error)
}

// RoleStore persists roles and the role-permission membership set.
//
// AddRolePermission and RemoveRolePermission are idempotent set operations.
// AddRolePermissions is atomic: either every edge is added or none is.
// DeleteRole removes the role together with both its edge sets.
type RoleStore interface {
	InsertRole(ctx context.Context, r *Role) error
	FindRoleByID(ctx context.Context, id string) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	UpdateRole(ctx context.Context, r *Role) error
	DeleteRole(ctx context.Context, id string) error
	ListRoles(ctx context.Context, page PageParams) ([]Role, error)
	ListRolesBySystem(ctx context.Context, isSystem bool) ([]Role, error)

	AddRolePermission(ctx context.Context, roleID, permissionID string) error
	AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID string) error
	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)
}

// UserStore persists users and the user-role membership set.
type UserStore interface {
	InsertUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, page PageParams) ([]User, error)

	AddUserRole(ctx context.Context, userID, roleID string) error
	RemoveUserRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]Role, error)
}

// AuditStore persists the append-only audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec *AuditRecord) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

// Store is the full persistence collaborator required by the registries and
// the engine. Both MemStore and SQLStore satisfy it; any implementation must
// honor the uniqueness and atomicity invariants documented on the embedded
// interfaces.
type Store interface {
	PermissionStore
	RoleStore
	UserStore
	AuditStore
}

// normalizePage clamps page parameters before a listing runs. A caller limit
// of zero or less falls back to the store's configured limit, then to
// defaultPageLimit.
func normalizePage(page PageParams, fallback int) PageParams {
	if page.Limit <= 0 {
		if fallback <= 0 {
			fallback = defaultPageLimit
		}
		page.Limit = fallback
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
