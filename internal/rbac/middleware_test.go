package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

func TestGrantsHasAny(t *testing.T) {
	grants := parseGrants("orders:write, packaging:read")

	require.True(t, grants.HasAny("orders:write"))
	require.True(t, grants.HasAny("orders:read"), "write implies read")
	require.True(t, grants.HasAny("packaging:read"))
	require.False(t, grants.HasAny("packaging:write"))
	require.False(t, grants.HasAny("assembly_line:read"))

	wildcard := parseGrants("*")
	require.True(t, wildcard.HasAny("anything:write"))

	var none Grants
	require.False(t, none.HasAny("orders:read"))
}

func newProtectedServer(mw Middleware, module, mode string) http.Handler {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(shared.ActorFromContext(r.Context())))
	})
	handler = mw.Require(module, mode)(handler)
	return mw.Gateway(handler)
}

func TestRequireAllowsGrantedCaller(t *testing.T) {
	srv := newProtectedServer(Middleware{}, "production_manager", "write")

	req := httptest.NewRequest(http.MethodPost, "/work-orders", nil)
	req.Header.Set(HeaderActor, "budi")
	req.Header.Set(HeaderPermissions, "production_manager:write")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "budi", rec.Body.String())
}

func TestRequireRejectsMissingGrant(t *testing.T) {
	srv := newProtectedServer(Middleware{}, "production_manager", "write")

	req := httptest.NewRequest(http.MethodPost, "/work-orders", nil)
	req.Header.Set(HeaderActor, "budi")
	req.Header.Set(HeaderPermissions, "orders:write")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "production_manager:write")
}

func TestRequireRejectsAnonymous(t *testing.T) {
	srv := newProtectedServer(Middleware{}, "orders", "read")

	// No gateway headers at all: unauthenticated rather than under-granted.
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Unauthorized")
}
