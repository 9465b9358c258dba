package accesskit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// benchmarkWorld seeds a store with a realistic grant graph: users holding
// a handful of roles, each role carrying a handful of permissions.
func benchmarkWorld(b *testing.B) (*Engine, []string) {
	b.Helper()
	ctx := context.Background()
	store := NewMemStore()
	permissions := NewPermissions(store)
	roles := NewRoles(store)
	users := NewUsers(store)

	resources := []string{"article", "comment", "invoice", "report", "project"}
	actions := []string{"read", "create", "update", "delete"}

	permIDs := make([]string, 0, len(resources)*len(actions))
	for _, res := range resources {
		for _, act := range actions {
			p, err := permissions.Create(ctx, CreatePermission{
				Name:     res + ":" + act,
				Resource: res,
				Action:   act,
			})
			if err != nil {
				b.Fatalf("seed permission: %v", err)
			}
			permIDs = append(permIDs, p.ID)
		}
	}

	roleIDs := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		role, err := roles.Create(ctx, CreateRole{Name: fmt.Sprintf("role-%d", i)})
		if err != nil {
			b.Fatalf("seed role: %v", err)
		}
		// each role gets a different slice of four permissions
		if err := roles.AssignPermissions(ctx, role.ID, permIDs[i*4:i*4+4]); err != nil {
			b.Fatalf("seed grants: %v", err)
		}
		roleIDs = append(roleIDs, role.ID)
	}

	userIDs := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		user, err := users.Create(ctx, CreateUser{
			Username: fmt.Sprintf("user-%d", i),
			Email:    fmt.Sprintf("user-%d@example.com", i),
		})
		if err != nil {
			b.Fatalf("seed user: %v", err)
		}
		for j := 0; j < 2; j++ {
			if err := users.AssignRole(ctx, user.ID, roleIDs[(i+j)%len(roleIDs)]); err != nil {
				b.Fatalf("seed membership: %v", err)
			}
		}
		userIDs = append(userIDs, user.ID)
	}

	return NewEngine(store), userIDs
}

// BenchmarkDecide benchmarks a single authorization decision
func BenchmarkDecide(b *testing.B) {
	engine, userIDs := benchmarkWorld(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Decide(ctx, userIDs[i%len(userIDs)], "article", "read")
	}
}

// BenchmarkDecideDenied benchmarks the full-walk deny path
func BenchmarkDecideDenied(b *testing.B) {
	engine, userIDs := benchmarkWorld(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Decide(ctx, userIDs[i%len(userIDs)], "article", "purge")
	}
}

// BenchmarkSnapshot benchmarks grant set resolution
func BenchmarkSnapshot(b *testing.B) {
	engine, userIDs := benchmarkWorld(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Snapshot(ctx, userIDs[i%len(userIDs)]); err != nil {
			b.Fatalf("snapshot: %v", err)
		}
	}
}

// BenchmarkCheckerAllows benchmarks repeated checks against one snapshot
func BenchmarkCheckerAllows(b *testing.B) {
	engine, userIDs := benchmarkWorld(b)
	checker, err := engine.Snapshot(context.Background(), userIDs[0])
	if err != nil {
		b.Fatalf("snapshot: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.Allows("article", "read")
	}
}

// BenchmarkMiddlewareRequire benchmarks the full HTTP enforcement path
func BenchmarkMiddlewareRequire(b *testing.B) {
	engine, userIDs := benchmarkWorld(b)
	mw := NewMiddleware(engine, WithPrincipalResolver(func(r *http.Request) (Principal, bool) {
		return Principal{ID: r.Header.Get("X-User-ID"), Authenticated: true}, true
	}))
	handler := mw.Require(NewGuard("article", "read"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", userIDs[0])

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}
