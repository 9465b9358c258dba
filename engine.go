package accesskit

import (
	"context"
)

// Engine computes authorization decisions. It is stateless: every call
// reads the registries' current state through the store, so a role or
// permission change takes effect on the very next check. Decisions are
// never cached across requests.
type Engine struct {
	store Store
}

// NewEngine creates the decision engine on top of a store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Decide reports whether the user may perform action on resource.
//
// The user's roles are resolved, each role's permissions expanded, and the
// pair matched exactly: both resource and action must be equal, with no
// wildcards, hierarchies or prefix matching. The walk short-circuits on the
// first match.
//
// Decide fails closed: a nonexistent user simply has no permissions, and a
// store failure denies rather than erroring.
func (e *Engine) Decide(ctx context.Context, userID, resource, action string) bool {
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		return false
	}
	roles, err := e.store.ListUserRoles(ctx, userID)
	if err != nil {
		return false
	}
	for _, role := range roles {
		perms, err := e.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return false
		}
		for _, p := range perms {
			if p.Resource == resource && p.Action == action {
				return true
			}
		}
	}
	return false
}

// Snapshot resolves a user's full grant set once and returns a Checker over
// it. The snapshot reflects the store's state at call time and is meant for
// repeated checks within a single request; it must not be reused across
// requests.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*Checker, error) {
	c := &Checker{
		userID: userID,
		grants: make(map[string]struct{}),
	}
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// A nonexistent user holds an empty grant set.
		return c, nil
	}
	roles, err := e.store.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		c.roles = append(c.roles, role.Name)
		perms, err := e.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			if _, seen := c.grants[p.Key()]; !seen {
				c.grants[p.Key()] = struct{}{}
				c.permissions = append(c.permissions, p.Name)
			}
		}
	}
	return c, nil
}

// Checker holds one user's resolved grant set for the duration of a single
// request. It is created by Engine.Snapshot and typically stored in context
// by the middleware (see CheckerFromContext).
type Checker struct {
	userID      string
	roles       []string
	permissions []string
	grants      map[string]struct{} // "resource:action" membership
}

// UserID returns the user this checker is for.
func (c *Checker) UserID() string {
	return c.userID
}

// Allows reports whether the snapshot contains an exact (resource, action)
// grant.
func (c *Checker) Allows(resource, action string) bool {
	_, ok := c.grants[permissionKey(resource, action)]
	return ok
}

// AllowsAny reports whether any of the guards is granted.
func (c *Checker) AllowsAny(guards ...Guard) bool {
	for _, g := range guards {
		if c.Allows(g.Resource, g.Action) {
			return true
		}
	}
	return false
}

// Roles returns the role names in the snapshot.
func (c *Checker) Roles() []string {
	return c.roles
}

// Permissions returns the permission names in the snapshot, deduplicated
// across roles.
func (c *Checker) Permissions() []string {
	return c.permissions
}

// IsEmpty reports whether the user holds no grants at all.
func (c *Checker) IsEmpty() bool {
	return len(c.grants) == 0
}
