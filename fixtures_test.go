package accesskit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture wires the registries and engine over a fresh in-memory store.
type fixture struct {
	store       *MemStore
	permissions *Permissions
	roles       *Roles
	users       *Users
	engine      *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemStore()
	return &fixture{
		store:       store,
		permissions: NewPermissions(store),
		roles:       NewRoles(store),
		users:       NewUsers(store),
		engine:      NewEngine(store),
	}
}

func (f *fixture) createPermission(t *testing.T, name, resource, action string) *Permission {
	t.Helper()
	p, err := f.permissions.Create(context.Background(), CreatePermission{
		Name:     name,
		Resource: resource,
		Action:   action,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) createRole(t *testing.T, name string, system bool) *Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), CreateRole{
		Name:     name,
		IsSystem: system,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) createUser(t *testing.T, username string) *User {
	t.Helper()
	u, err := f.users.Create(context.Background(), CreateUser{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return u
}

// seedEditor builds the common scenario: user alice holds role editor,
// which carries article:read and article:update but not article:delete.
func (f *fixture) seedEditor(t *testing.T) (user *User, role *Role) {
	t.Helper()
	ctx := context.Background()

	read := f.createPermission(t, "articles:read", "article", "read")
	update := f.createPermission(t, "articles:update", "article", "update")
	f.createPermission(t, "articles:delete", "article", "delete")

	role = f.createRole(t, "editor", false)
	require.NoError(t, f.roles.AssignPermissions(ctx, role.ID, []string{read.ID, update.ID}))

	user = f.createUser(t, "alice")
	require.NoError(t, f.users.AssignRole(ctx, user.ID, role.ID))
	return user, role
}
