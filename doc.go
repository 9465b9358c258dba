// Package accesskit provides a role-based access control (RBAC) core:
// users hold roles, roles bundle permissions, and an authorization engine
// decides whether a user may perform an action on a resource.
//
// # Core Concepts
//
// Permission: the atomic grantable unit, uniquely identified by its name and
// by its (resource, action) pair. Example: ("article", "delete").
//
// Role: a named, reusable bundle of permissions assignable to users. Roles
// marked as system roles cannot be deleted.
//
// User: the principal of an authorization decision. Users carry a lifecycle
// status (active, inactive, locked) and a set of roles.
//
// Decision: Engine.Decide(ctx, userID, resource, action) resolves the user's
// roles to their permissions and reports whether any permission matches the
// pair exactly. Missing users, missing roles and store failures all decide
// to false; the engine fails closed and never wildcards.
//
// # Key Features
//
//   - Store-agnostic: registries and engine work against the Store interface;
//     an in-memory store and a PostgreSQL store (dbkit/bun) are included
//   - Set-semantics associations: assigning a role or permission twice is a
//     no-op, bulk assignment is all-or-nothing
//   - System-role protection: deleting a protected role always fails
//   - Declarative enforcement: a Guard names the required (resource, action)
//     and HTTP middleware rejects the request before the handler runs
//   - Audit trail: association and lifecycle mutations are recorded with
//     actor and request metadata
//
// # Basic Usage
//
//	// 1. Open a store (PostgreSQL through dbkit, or NewMemStore for tests)
//	cfg, _ := accesskit.ConfigFromEnv()
//	store, _ := accesskit.OpenSQLStore(cfg)
//	store.Migrate(ctx)
//
//	// 2. Create the registries and the engine
//	permissions := accesskit.NewPermissions(store)
//	roles := accesskit.NewRoles(store)
//	users := accesskit.NewUsers(store)
//	engine := accesskit.NewEngine(store)
//
//	// 3. Build the permission graph
//	del, _ := permissions.Create(ctx, accesskit.CreatePermission{
//	    Name: "article:delete", Resource: "article", Action: "delete",
//	})
//	editor, _ := roles.Create(ctx, accesskit.CreateRole{Name: "editor"})
//	roles.AssignPermission(ctx, editor.ID, del.ID)
//
//	alice, _ := users.Create(ctx, accesskit.CreateUser{
//	    Username: "alice", Email: "alice@example.com",
//	})
//	users.AssignRole(ctx, alice.ID, editor.ID)
//
//	// 4. Decide
//	if engine.Decide(ctx, alice.ID, "article", "delete") {
//	    // allowed
//	}
//
// # Middleware Usage
//
//	mw := accesskit.NewMiddleware(engine)
//
//	router.With(mw.Require(accesskit.NewGuard("article", "delete"))).
//	    Delete("/articles/{id}", deleteArticleHandler)
//
// The middleware resolves the current principal from the request context
// (see WithPrincipal), rejects unauthenticated requests with 401 and denied
// requests with 403, and never runs the handler on a negative decision.
// A nil guard falls back to the middleware's type-level guard; when both are
// nil the request is allowed through after authentication.
//
// # Principal Resolution
//
// Token and session validation are out of scope. The host's authentication
// layer places the principal into the request context:
//
//	ctx = accesskit.WithPrincipal(ctx, accesskit.Principal{ID: userID, Authenticated: true})
//
// # Audit Log
//
// Role and permission assignment changes, locks and unlocks are logged with:
//   - Actor (who made the change)
//   - Action (role_assigned, permission_removed, user_locked, ...)
//   - Target entity ids
//   - Timestamp and request metadata (IP, user agent, request ID)
package accesskit
