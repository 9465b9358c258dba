package accesskit

import (
	"context"
)

// Guard is the declarative requirement attached to an operation: the caller
// must hold a permission matching (Resource, Action) exactly. Description is
// free text for diagnostics and plays no part in the decision.
//
// Guards are plain data so they can be declared next to the operations they
// protect:
//
//	var deleteArticle = accesskit.NewGuard("article", "delete").
//	    Describe("remove an article and its comments")
type Guard struct {
	Resource    string
	Action      string
	Description string
}

// NewGuard declares a guard for the (resource, action) pair.
func NewGuard(resource, action string) *Guard {
	return &Guard{Resource: resource, Action: action}
}

// Describe attaches a human-readable description to the guard.
func (g *Guard) Describe(text string) *Guard {
	g.Description = text
	return g
}

// Authorize is the stateless interception primitive: it enforces a guard
// against the principal in ctx before a guarded operation may run.
//
// The sequence is fixed:
//  1. Resolve the principal from ctx. Missing or unauthenticated principals
//     are rejected with ErrAuthenticationRequired.
//  2. A nil guard means the operation declares no restriction: allow.
//  3. Ask the engine to decide. A negative decision is rejected with
//     ErrAuthorizationDenied carrying the required resource and action.
//
// Authorize has no state of its own and is safe for any number of
// concurrent calls.
func Authorize(ctx context.Context, engine *Engine, guard *Guard) error {
	principal, ok := PrincipalFromContext(ctx)
	if !ok || !principal.Authenticated {
		return NewError(ErrAuthenticationRequired, "no authenticated principal in context")
	}
	if guard == nil {
		return nil
	}
	if !engine.Decide(ctx, principal.ID, guard.Resource, guard.Action) {
		return NewError(ErrAuthorizationDenied, "missing required permission").
			WithUser(principal.ID).
			WithRequirement(guard.Resource, guard.Action)
	}
	return nil
}
