package accesskit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// headerResolver authenticates any request carrying X-User-ID.
func headerResolver(r *http.Request) (Principal, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return Principal{}, false
	}
	return Principal{ID: id, Authenticated: true}, true
}

// TestMiddlewareRequireAllowed tests the allow path end to end
func TestMiddlewareRequireAllowed(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))
	handler := mw.Require(NewGuard("article", "read"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestMiddlewareRequireDenied tests the 403 path
func TestMiddlewareRequireDenied(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))

	invoked := false
	handler := mw.Require(NewGuard("article", "delete"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
	}))

	req := httptest.NewRequest(http.MethodDelete, "/articles/1", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, invoked, "handler must not run on a denied request")
}

// TestMiddlewareRequireUnauthenticated tests the 401 path
func TestMiddlewareRequireUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))
	handler := mw.Require(NewGuard("article", "read"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMiddlewareTypeGuardFallback tests that a nil route guard falls back
// to the middleware-level guard
func TestMiddlewareTypeGuardFallback(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine,
		WithPrincipalResolver(headerResolver),
		WithTypeGuard(NewGuard("article", "delete")),
	)

	// nil route guard: the type guard applies and alice lacks delete
	handler := mw.Require(nil)(okHandler())
	req := httptest.NewRequest(http.MethodDelete, "/articles/1", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a route guard overrides the type guard
	handler = mw.Require(NewGuard("article", "read"))(okHandler())
	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestMiddlewareNoGuardsAuthenticatedOnly tests that both-nil guards still
// require authentication
func TestMiddlewareNoGuardsAuthenticatedOnly(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "alice")

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))
	handler := mw.Require(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMiddlewareCustomErrorHandler tests error handler replacement
func TestMiddlewareCustomErrorHandler(t *testing.T) {
	f := newFixture(t)
	f.seedEditor(t)

	var seen error
	mw := NewMiddleware(f.engine,
		WithPrincipalResolver(headerResolver),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			seen = err
			w.WriteHeader(http.StatusTeapot)
		}),
	)
	handler := mw.Require(NewGuard("article", "read"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, IsAuthenticationRequired(seen))
}

// TestMiddlewareAttachesChecker tests that the handler receives a grant
// snapshot in context after a successful check
func TestMiddlewareAttachesChecker(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))

	var checker *Checker
	handler := mw.Require(NewGuard("article", "read"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checker = CheckerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, checker)
	assert.Equal(t, user.ID, checker.UserID())
	assert.True(t, checker.Allows("article", "update"))
	assert.False(t, checker.Allows("article", "delete"))
}

// TestMiddlewareRequireAny tests the any-of combinator
func TestMiddlewareRequireAny(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))

	// alice holds read but not delete: any-of passes
	handler := mw.RequireAny(NewGuard("article", "delete"), NewGuard("article", "read"))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// none of the guards held: denied
	handler = mw.RequireAny(NewGuard("article", "delete"), NewGuard("invoice", "read"))(okHandler())
	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestMiddlewareDefaultResolver tests the context-based default resolver
func TestMiddlewareDefaultResolver(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine)
	handler := mw.Require(NewGuard("article", "read"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	ctx := WithPrincipal(req.Context(), Principal{ID: user.ID, Authenticated: true})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestMiddlewareLoadChecker tests snapshot loading without enforcement
func TestMiddlewareLoadChecker(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))

	var checker *Checker
	handler := mw.LoadChecker()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checker = CheckerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// anonymous requests pass through, just without a checker
	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, checker)

	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.NotNil(t, checker)
	assert.True(t, checker.Allows("article", "read"))
}

// TestMiddlewareInjectRequestMeta tests request metadata propagation
func TestMiddlewareInjectRequestMeta(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "alice")

	mw := NewMiddleware(f.engine, WithPrincipalResolver(headerResolver))

	var gotIP, gotUA, gotRequestID, gotActor string
	handler := mw.InjectRequestMeta()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = IPAddressFromContext(r.Context())
		gotUA = UserAgentFromContext(r.Context())
		gotRequestID = RequestIDFromContext(r.Context())
		gotActor = ActorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("X-User-ID", user.ID)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, "req-123", gotRequestID)
	assert.Equal(t, user.ID, gotActor)
}

// TestMiddlewareProtect tests the non-HTTP interceptor
func TestMiddlewareProtect(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedEditor(t)

	mw := NewMiddleware(f.engine)

	invoked := false
	op := mw.Protect(NewGuard("article", "update"), func(ctx context.Context) error {
		invoked = true
		return nil
	})

	// without a principal the wrapped operation never runs
	err := op(context.Background())
	assert.True(t, IsAuthenticationRequired(err))
	assert.False(t, invoked)

	ctx := WithPrincipal(context.Background(), Principal{ID: user.ID, Authenticated: true})
	require.NoError(t, op(ctx))
	assert.True(t, invoked)

	denied := mw.Protect(NewGuard("article", "delete"), func(ctx context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})
	err = denied(ctx)
	assert.True(t, IsAuthorizationDenied(err))
}
