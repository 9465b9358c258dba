package accesskit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permissions is the registry owning Permission entities. It enforces the
// uniqueness of Name and of the (Resource, Action) pair and keeps role
// associations consistent on delete.
type Permissions struct {
	store Store
}

// NewPermissions creates the permission registry on top of a store.
func NewPermissions(store Store) *Permissions {
	return &Permissions{store: store}
}

// CreatePermission are the parameters for Permissions.Create.
type CreatePermission struct {
	Name        string `validate:"required,max=100"`
	Resource    string `validate:"required,max=100"`
	Action      string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

// Create registers a new permission. It fails with ErrConflict if the name
// or the (resource, action) pair already exists.
func (p *Permissions) Create(ctx context.Context, params CreatePermission) (*Permission, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Resource = strings.TrimSpace(params.Resource)
	params.Action = strings.TrimSpace(params.Action)
	if err := validateInput(params); err != nil {
		return nil, err
	}

	if existing, err := p.store.FindPermissionByName(ctx, params.Name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrConflict, "permission name already exists").WithPermission(existing.ID)
	}
	if existing, err := p.store.FindPermissionByPair(ctx, params.Resource, params.Action); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrConflict, "permission pair already exists").WithPermission(existing.ID)
	}

	perm := &Permission{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Resource:    params.Resource,
		Action:      params.Action,
		Description: params.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.store.InsertPermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// UpdatePermission are the parameters for Permissions.Update. Nil fields are
// left unchanged.
type UpdatePermission struct {
	Name        *string `validate:"omitempty,min=1,max=100"`
	Resource    *string `validate:"omitempty,min=1,max=100"`
	Action      *string `validate:"omitempty,min=1,max=100"`
	Description *string `validate:"omitempty,max=500"`
}

// Update applies changes to an existing permission. It fails with
// ErrNotFound if the id is absent and with ErrConflict if the change would
// collide with another permission's name or pair.
func (p *Permissions) Update(ctx context.Context, id string, changes UpdatePermission) (*Permission, error) {
	if err := validateInput(changes); err != nil {
		return nil, err
	}
	perm, err := p.store.FindPermissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, NewError(ErrNotFound, "permission does not exist").WithPermission(id)
	}

	if changes.Name != nil {
		perm.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.Resource != nil {
		perm.Resource = strings.TrimSpace(*changes.Resource)
	}
	if changes.Action != nil {
		perm.Action = strings.TrimSpace(*changes.Action)
	}
	if changes.Description != nil {
		perm.Description = *changes.Description
	}

	if other, err := p.store.FindPermissionByName(ctx, perm.Name); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, NewError(ErrConflict, "permission name already exists").WithPermission(other.ID)
	}
	if other, err := p.store.FindPermissionByPair(ctx, perm.Resource, perm.Action); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, NewError(ErrConflict, "permission pair already exists").WithPermission(other.ID)
	}

	if err := p.store.UpdatePermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// Delete removes a permission and detaches it from every role referencing
// it. Roles themselves are never deleted by this cascade.
func (p *Permissions) Delete(ctx context.Context, id string) error {
	perm, err := p.store.FindPermissionByID(ctx, id)
	if err != nil {
		return err
	}
	if perm == nil {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(id)
	}
	if err := p.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	_ = p.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditPermissionDeleted,
		TargetID:  id,
	}))
	return nil
}

// GetByID returns the permission, or nil if absent. Absence is not an error.
func (p *Permissions) GetByID(ctx context.Context, id string) (*Permission, error) {
	return p.store.FindPermissionByID(ctx, id)
}

// GetByName returns the permission with the given canonical name, or nil.
func (p *Permissions) GetByName(ctx context.Context, name string) (*Permission, error) {
	return p.store.FindPermissionByName(ctx, name)
}

// GetByResourceAndAction returns the permission for the pair, or nil.
func (p *Permissions) GetByResourceAndAction(ctx context.Context, resource, action string) (*Permission, error) {
	return p.store.FindPermissionByPair(ctx, resource, action)
}

// List returns a stable page of permissions, ascending by id.
func (p *Permissions) List(ctx context.Context, page PageParams) ([]Permission, error) {
	return p.store.ListPermissions(ctx, page)
}

// ListResources returns the distinct resource names currently stored.
// This is a computed view over the permissions, not a separate index.
func (p *Permissions) ListResources(ctx context.Context) ([]string, error) {
	return p.store.ListResources(ctx)
}

// ListActionsFor returns the distinct actions stored for a resource.
func (p *Permissions) ListActionsFor(ctx context.Context, resource string) ([]string, error) {
	return p.store.ListActions(ctx, resource)
}
