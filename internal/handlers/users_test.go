package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/safar/go-shop-api/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableDB opens a handle that fails fast on use, so a test can tell a
// request that was refused before the store from one that reached it.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// adminRequest builds a request carrying an admin principal and a routed id
// parameter, the way the router hands them to the admin user handlers.
func adminRequest(method, body string, actingID int64, targetID string) *http.Request {
	req := httptest.NewRequest(method, "/admin/users/"+targetID, strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", targetID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = auth.WithPrincipal(ctx, auth.Principal{UserID: actingID, Admin: true})

	return req.WithContext(ctx)
}

func TestSetUserRoleSelfLockout(t *testing.T) {
	h := newTestHandler()
	h.db = unreachableDB(t)

	// Revoking your own admin flag is refused before any store call.
	rec := httptest.NewRecorder()
	h.SetUserRole(rec, adminRequest(http.MethodPatch, `{"is_admin":false}`, 7, "7"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SELF_LOCKOUT")
}

func TestSetUserRoleSelfGrantAllowed(t *testing.T) {
	h := newTestHandler()
	h.db = unreachableDB(t)

	// Re-granting your own flag is not a lockout; the request reaches the
	// store, which is what fails here.
	rec := httptest.NewRecorder()
	h.SetUserRole(rec, adminRequest(http.MethodPatch, `{"is_admin":true}`, 7, "7"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELF_LOCKOUT")
}

func TestSetUserRoleOtherUserReachesStore(t *testing.T) {
	h := newTestHandler()
	h.db = unreachableDB(t)

	rec := httptest.NewRecorder()
	h.SetUserRole(rec, adminRequest(http.MethodPatch, `{"is_admin":false}`, 7, "8"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELF_LOCKOUT")
}

func TestDeleteUserSelfLockout(t *testing.T) {
	h := newTestHandler()
	h.db = unreachableDB(t)

	rec := httptest.NewRecorder()
	h.DeleteUser(rec, adminRequest(http.MethodDelete, "", 7, "7"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SELF_LOCKOUT")
}

func TestDeleteUserOtherUserReachesStore(t *testing.T) {
	h := newTestHandler()
	h.db = unreachableDB(t)

	rec := httptest.NewRecorder()
	h.DeleteUser(rec, adminRequest(http.MethodDelete, "", 7, "8"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELF_LOCKOUT")
}
