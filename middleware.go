package accesskit

import (
	"context"
	"log/slog"
	"net/http"
)

// Middleware wires guard enforcement into HTTP handlers. It holds no
// per-request state; every request is resolved and decided independently.
type Middleware struct {
	engine       *Engine
	resolver     func(*http.Request) (Principal, bool)
	errorHandler func(http.ResponseWriter, *http.Request, error)
	logger       *slog.Logger
	typeGuard    *Guard
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := accesskit.NewMiddleware(engine,
//	    accesskit.WithPrincipalResolver(func(r *http.Request) (accesskit.Principal, bool) {
//	        return sessionPrincipal(r)
//	    }),
//	)
func NewMiddleware(engine *Engine, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		engine:       engine,
		resolver:     defaultPrincipalResolver,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithPrincipalResolver sets a custom function to extract the principal
// from a request. The default reads the principal from the request context
// (see WithPrincipal).
func WithPrincipalResolver(fn func(*http.Request) (Principal, bool)) MiddlewareOption {
	return func(m *Middleware) {
		m.resolver = fn
	}
}

// WithErrorHandler sets a custom rejection writer.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithLogger sets a logger for denied and failed requests. Nil disables
// logging.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithTypeGuard sets the type-level guard: the requirement that applies to
// every route wrapped by this middleware whose own guard is nil. A per-route
// guard always takes precedence.
func WithTypeGuard(guard *Guard) MiddlewareOption {
	return func(m *Middleware) {
		m.typeGuard = guard
	}
}

func defaultPrincipalResolver(r *http.Request) (Principal, bool) {
	return PrincipalFromContext(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsAuthenticationRequired(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsAuthorizationDenied(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// effectiveGuard applies method-over-type precedence: the per-operation
// guard wins when present, otherwise the type-level guard applies.
func (m *Middleware) effectiveGuard(guard *Guard) *Guard {
	if guard != nil {
		return guard
	}
	return m.typeGuard
}

// Require creates middleware that enforces a guard before the wrapped
// handler runs. The handler never executes on a missing principal or a
// negative decision. A nil guard falls back to the middleware's type-level
// guard; when both are nil the request is allowed through once the
// principal is authenticated.
//
// Example:
//
//	router.With(mw.Require(accesskit.NewGuard("article", "delete"))).
//	    Delete("/articles/{id}", deleteArticleHandler)
func (m *Middleware) Require(guard *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := m.resolver(r)
			if ok {
				ctx = WithPrincipal(ctx, principal)
			}

			effective := m.effectiveGuard(guard)
			if err := Authorize(ctx, m.engine, effective); err != nil {
				m.reject(w, r, effective, err)
				return
			}

			// Best-effort: give the handler a snapshot for further checks.
			if checker, err := m.engine.Snapshot(ctx, principal.ID); err == nil {
				ctx = WithChecker(ctx, checker)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAny creates middleware that allows the request when any one of the
// guards is granted.
func (m *Middleware) RequireAny(guards ...*Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := m.resolver(r)
			if ok {
				ctx = WithPrincipal(ctx, principal)
			}

			var err error
			for _, g := range guards {
				if err = Authorize(ctx, m.engine, g); err == nil {
					break
				}
				if IsAuthenticationRequired(err) {
					break
				}
			}
			if len(guards) == 0 {
				err = Authorize(ctx, m.engine, nil)
			}
			if err != nil {
				m.reject(w, r, nil, err)
				return
			}

			if checker, cerr := m.engine.Snapshot(ctx, principal.ID); cerr == nil {
				ctx = WithChecker(ctx, checker)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that resolves the principal's grant
// snapshot into context without enforcing anything. Use it when the handler
// does its own checks through CheckerFromContext.
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := m.resolver(r)
			if !ok || !principal.Authenticated {
				next.ServeHTTP(w, r)
				return
			}
			ctx = WithPrincipal(ctx, principal)
			if checker, err := m.engine.Snapshot(ctx, principal.ID); err == nil {
				ctx = WithChecker(ctx, checker)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectRequestMeta creates middleware that copies request metadata into
// the context so that registry mutations further down the call chain stamp
// their audit records with it.
func (m *Middleware) InjectRequestMeta() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}
			if principal, ok := m.resolver(r); ok {
				ctx = WithPrincipal(ctx, principal)
				ctx = WithActorID(ctx, principal.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Protect wraps a non-HTTP operation with guard enforcement. The returned
// function authorizes against the principal in ctx and only then invokes
// fn. It is the interceptor for service-layer call sites that never see an
// *http.Request.
//
// Example:
//
//	purge := mw.Protect(accesskit.NewGuard("article", "purge"), articleService.PurgeAll)
//	if err := purge(ctx); err != nil { ... }
func (m *Middleware) Protect(guard *Guard, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		effective := m.effectiveGuard(guard)
		if err := Authorize(ctx, m.engine, effective); err != nil {
			m.logDenied(effective, err)
			return err
		}
		return fn(ctx)
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, guard *Guard, err error) {
	m.logDenied(guard, err)
	m.errorHandler(w, r, err)
}

func (m *Middleware) logDenied(guard *Guard, err error) {
	if m.logger == nil {
		return
	}
	attrs := []any{slog.Any("error", err)}
	if guard != nil {
		attrs = append(attrs,
			slog.String("resource", guard.Resource),
			slog.String("action", guard.Action),
		)
	}
	m.logger.Warn("request rejected", attrs...)
}
