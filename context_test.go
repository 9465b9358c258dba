package accesskit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPrincipalContext tests principal round-trip through context
func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)

	ctx = WithPrincipal(ctx, Principal{ID: "u1", Authenticated: true})
	p, ok := PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.Authenticated)
}

// TestActorIDContext tests actor resolution and its principal fallback
func TestActorIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", ActorIDFromContext(ctx))

	// falls back to the principal when no explicit actor is set
	ctx = WithPrincipal(ctx, Principal{ID: "u1", Authenticated: true})
	assert.Equal(t, "u1", ActorIDFromContext(ctx))

	// an explicit actor wins over the principal
	ctx = WithActorID(ctx, "admin-7")
	assert.Equal(t, "admin-7", ActorIDFromContext(ctx))
}

// TestRequestMetaContext tests the audit metadata helpers
func TestRequestMetaContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", IPAddressFromContext(ctx))
	assert.Equal(t, "", UserAgentFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(ctx))

	ctx = WithIPAddress(ctx, "203.0.113.9")
	ctx = WithUserAgent(ctx, "test-agent/1.0")
	ctx = WithRequestID(ctx, "req-123")

	assert.Equal(t, "203.0.113.9", IPAddressFromContext(ctx))
	assert.Equal(t, "test-agent/1.0", UserAgentFromContext(ctx))
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

// TestCheckerContext tests checker round-trip through context
func TestCheckerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, CheckerFromContext(ctx))

	checker := &Checker{userID: "u1", grants: map[string]struct{}{}}
	ctx = WithChecker(ctx, checker)
	assert.Same(t, checker, CheckerFromContext(ctx))
}

// TestAuditStamp tests that records pick up context metadata
func TestAuditStamp(t *testing.T) {
	ctx := WithActorID(context.Background(), "admin-7")
	ctx = WithIPAddress(ctx, "203.0.113.9")
	ctx = WithUserAgent(ctx, "test-agent/1.0")
	ctx = WithRequestID(ctx, "req-123")

	rec := auditStamp(ctx, &AuditRecord{Action: AuditRoleAssigned})
	assert.Equal(t, "admin-7", rec.ActorID)
	assert.Equal(t, "203.0.113.9", rec.IPAddress)
	assert.Equal(t, "test-agent/1.0", rec.UserAgent)
	assert.Equal(t, "req-123", rec.RequestID)
}
