package accesskit

import (
	"context"
)

// Principal is the authenticated caller of a guarded operation. It is placed
// into the context by the host's authentication layer; accesskit never
// resolves credentials itself.
type Principal struct {
	ID            string
	Authenticated bool
}

// Context keys for accesskit values.
type contextKey string

const (
	contextKeyPrincipal contextKey = "accesskit:principal"
	contextKeyActorID   contextKey = "accesskit:actor_id"
	contextKeyIPAddress contextKey = "accesskit:ip_address"
	contextKeyUserAgent contextKey = "accesskit:user_agent"
	contextKeyRequestID contextKey = "accesskit:request_id"
	contextKeyChecker   contextKey = "accesskit:checker"
)

// WithPrincipal adds the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext retrieves the principal from context.
// The second return value is false if no principal is present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if v := ctx.Value(contextKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return Principal{}, false
}

// WithActorID adds an actor ID to the context. The actor is the user
// performing a mutation, recorded in the audit log. Often the same as the
// principal, but can differ for administrative actions.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// ActorIDFromContext retrieves the actor ID from context.
// Falls back to the principal's ID if no actor is explicitly set.
func ActorIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.ID
	}
	return ""
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// IPAddressFromContext retrieves the IP address from context.
func IPAddressFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// UserAgentFromContext retrieves the user agent from context.
func UserAgentFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context. Set by the middleware so
// handlers can perform additional checks without re-reading the store.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// CheckerFromContext retrieves the Checker from context.
// Returns nil if not set.
func CheckerFromContext(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// auditStamp fills the actor and request metadata of an audit record from
// the context.
func auditStamp(ctx context.Context, rec *AuditRecord) *AuditRecord {
	rec.ActorID = ActorIDFromContext(ctx)
	rec.IPAddress = IPAddressFromContext(ctx)
	rec.UserAgent = UserAgentFromContext(ctx)
	rec.RequestID = RequestIDFromContext(ctx)
	return rec
}
