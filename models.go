package accesskit

import (
	"time"

	"github.com/uptrace/bun"
)

// Permission is the atomic grantable unit. Both Name and the
// (Resource, Action) pair are unique across all permissions.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull"`
	Resource    string    `bun:"resource,notnull"` // coarse-grained noun, e.g. "article"
	Action      string    `bun:"action,notnull"`   // verb, e.g. "delete"
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Key returns the canonical "resource:action" form of the permission.
func (p *Permission) Key() string {
	return permissionKey(p.Resource, p.Action)
}

func permissionKey(resource, action string) string {
	return resource + ":" + action
}

// Role is a named bundle of permissions. IsSystem marks the role as
// protected: a system role can never be deleted.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	IsSystem    bool      `bun:"is_system,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserStatus is the lifecycle state of a user account. Exactly one status
// holds at any time.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusLocked   UserStatus = "locked"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusLocked:
		return true
	}
	return false
}

// User is the principal of authorization decisions. The password hash is
// opaque to this package; it is produced and verified by the host's
// credential service.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:uuid"`
	Username     string     `bun:"username,notnull"`
	Email        string     `bun:"email,notnull"`
	PasswordHash string     `bun:"password_hash"`
	FullName     string     `bun:"full_name"`
	AvatarURL    string     `bun:"avatar_url"`
	Status       UserStatus `bun:"status,notnull,default:'active'"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at,nullzero"` // nil until first login
}

// RolePermission is the membership edge between a role and a permission.
// Plain set semantics: no attributes, no ordering, duplicates impossible.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	RoleID       string    `bun:"role_id,pk,type:uuid"`
	PermissionID string    `bun:"permission_id,pk,type:uuid"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserRole is the membership edge between a user and a role.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID    string    `bun:"user_id,pk,type:uuid"`
	RoleID    string    `bun:"role_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditAction identifies the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditRoleAssigned      AuditAction = "role_assigned"
	AuditRoleRemoved       AuditAction = "role_removed"
	AuditPermissionGranted AuditAction = "permission_assigned"
	AuditPermissionRevoked AuditAction = "permission_removed"
	AuditUserLocked        AuditAction = "user_locked"
	AuditUserUnlocked      AuditAction = "user_unlocked"
	AuditRoleDeleted       AuditAction = "role_deleted"
	AuditPermissionDeleted AuditAction = "permission_deleted"
	AuditUserDeleted       AuditAction = "user_deleted"
)

// AuditRecord is an append-only log entry for association and lifecycle
// mutations. Audit writes are best-effort: a failed append never fails the
// mutation it describes.
type AuditRecord struct {
	bun.BaseModel `bun:"table:audit_log,alias:al"`

	ID        string    `bun:"id,pk,type:uuid"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action.
	ActorID string `bun:"actor_id"`

	// What happened.
	Action AuditAction `bun:"action,notnull"`

	// Entity the mutation targeted (user for role edges and lifecycle
	// changes, role for permission edges).
	TargetID string `bun:"target_id,notnull"`

	// The other end of the edge, when the action is an association change.
	SubjectID string `bun:"subject_id"`

	// Request metadata for forensics.
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditFilter narrows ListAudit results. Zero-value fields are ignored.
type AuditFilter struct {
	ActorID  string
	Action   AuditAction
	TargetID string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// PageParams bounds a listing. Ordering is ascending by identity; a zero
// Limit falls back to the store's default page size.
type PageParams struct {
	Offset int
	Limit  int
}
