// Package rbac enforces module:mode permission grants resolved by the
// upstream auth gateway. Forgeline never derives identity itself; it trusts
// the gateway headers and only checks that the already-authenticated caller
// holds the grant a route demands.
package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

const (
	// HeaderActor carries the authenticated username.
	HeaderActor = "X-Auth-User"
	// HeaderPermissions carries comma-separated module:mode grants, or "*".
	HeaderPermissions = "X-Auth-Permissions"
)

// Middleware wires permission checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// Gateway extracts the caller identity and grants into the request context.
// It runs once per request ahead of the per-route checks.
func (m Middleware) Gateway(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.ContextWithActor(r.Context(), r.Header.Get(HeaderActor))
		ctx = contextWithGrants(ctx, parseGrants(r.Header.Get(HeaderPermissions)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require ensures the caller holds module:mode. A "read" requirement is also
// satisfied by a "write" grant on the same module.
func (m Middleware) Require(module, mode string) func(http.Handler) http.Handler {
	return m.RequireAny(module + ":" + mode)
}

// RequireAny ensures the caller holds at least one of the given grants.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grants := grantsFromContext(r.Context())
			if grants.HasAny(perms...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("permission denied",
					slog.String("path", r.URL.Path),
					slog.String("required", strings.Join(perms, ",")))
			}
			// Callers presenting no grants at all never authenticated.
			if len(grants) == 0 {
				httpx.RespondError(w, fmt.Errorf("%w: no grants presented", httpx.ErrUnauthorized))
				return
			}
			httpx.RespondError(w, fmt.Errorf("%w: requires %s", httpx.ErrForbidden, strings.Join(perms, " or ")))
		})
	}
}
