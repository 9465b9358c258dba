package accesskit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles is the registry owning Role entities, the IsSystem protection flag
// and the role-permission membership set.
type Roles struct {
	store Store
}

// NewRoles creates the role registry on top of a store.
func NewRoles(store Store) *Roles {
	return &Roles{store: store}
}

// CreateRole are the parameters for Roles.Create. IsSystem defaults to
// false; whether a caller may set it is the enforcement layer's concern,
// not the registry's.
type CreateRole struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	IsSystem    bool
}

// Create registers a new role. It fails with ErrConflict on a duplicate name.
func (r *Roles) Create(ctx context.Context, params CreateRole) (*Role, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := validateInput(params); err != nil {
		return nil, err
	}

	if existing, err := r.store.FindRoleByName(ctx, params.Name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrConflict, "role name already exists").WithRole(existing.ID)
	}

	role := &Role{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Description: params.Description,
		IsSystem:    params.IsSystem,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.InsertRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole are the parameters for Roles.Update. Nil fields are left
// unchanged. Toggling IsSystem through this path is permitted by the
// registry contract; restricting who may do so belongs to the caller.
type UpdateRole struct {
	Name        *string `validate:"omitempty,min=1,max=100"`
	Description *string `validate:"omitempty,max=500"`
	IsSystem    *bool
}

// Update applies changes to an existing role.
func (r *Roles) Update(ctx context.Context, id string, changes UpdateRole) (*Role, error) {
	if err := validateInput(changes); err != nil {
		return nil, err
	}
	role, err := r.store.FindRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, NewError(ErrNotFound, "role does not exist").WithRole(id)
	}

	if changes.Name != nil {
		role.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.Description != nil {
		role.Description = *changes.Description
	}
	if changes.IsSystem != nil {
		role.IsSystem = *changes.IsSystem
	}

	if other, err := r.store.FindRoleByName(ctx, role.Name); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, NewError(ErrConflict, "role name already exists").WithRole(other.ID)
	}

	if err := r.store.UpdateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Delete removes a role and both of its edge sets. Deleting a system role
// always fails with ErrProtectedRole; the check runs before any store
// mutation.
func (r *Roles) Delete(ctx context.Context, id string) error {
	role, err := r.store.FindRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return NewError(ErrNotFound, "role does not exist").WithRole(id)
	}
	if role.IsSystem {
		return NewError(ErrProtectedRole, "system roles cannot be deleted").WithRole(id)
	}
	if err := r.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	_ = r.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditRoleDeleted,
		TargetID:  id,
	}))
	return nil
}

// AssignPermission adds a permission to a role. Re-assigning an already
// assigned permission is a no-op success. Fails with ErrNotFound if either
// id does not resolve.
func (r *Roles) AssignPermission(ctx context.Context, roleID, permissionID string) error {
	if err := r.store.AddRolePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	_ = r.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditPermissionGranted,
		TargetID:  roleID,
		SubjectID: permissionID,
	}))
	return nil
}

// AssignPermissions is the bulk variant of AssignPermission. It is
// all-or-nothing: if any id is invalid the whole call fails with
// ErrNotFound and no partial assignment is retained.
func (r *Roles) AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if err := r.store.AddRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	for _, permissionID := range permissionIDs {
		_ = r.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Action:    AuditPermissionGranted,
			TargetID:  roleID,
			SubjectID: permissionID,
		}))
	}
	return nil
}

// RemovePermission removes a permission from a role. Removing a non-member
// permission is a no-op success.
func (r *Roles) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	if err := r.store.RemoveRolePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	_ = r.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditPermissionRevoked,
		TargetID:  roleID,
		SubjectID: permissionID,
	}))
	return nil
}

// GetPermissions returns the names of the permissions currently on the
// role. A role without permissions yields an empty set, not an error.
func (r *Roles) GetPermissions(ctx context.Context, roleID string) ([]string, error) {
	perms, err := r.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names, nil
}

// GetByID returns the role, or nil if absent.
func (r *Roles) GetByID(ctx context.Context, id string) (*Role, error) {
	return r.store.FindRoleByID(ctx, id)
}

// GetByName returns the role with the given name, or nil.
func (r *Roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.store.FindRoleByName(ctx, name)
}

// List returns a stable page of roles, ascending by id.
func (r *Roles) List(ctx context.Context, page PageParams) ([]Role, error) {
	return r.store.ListRoles(ctx, page)
}

// ListNonSystem returns the roles a UI may offer for deletion.
func (r *Roles) ListNonSystem(ctx context.Context) ([]Role, error) {
	return r.store.ListRolesBySystem(ctx, false)
}

// IsSystemRole reports whether the role is protected. A missing role is
// reported as false, not as an error.
func (r *Roles) IsSystemRole(ctx context.Context, id string) bool {
	role, err := r.store.FindRoleByID(ctx, id)
	if err != nil || role == nil {
		return false
	}
	return role.IsSystem
}
