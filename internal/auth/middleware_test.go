package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testCookie = "shop_session_test"

func newTestGuard(t *testing.T) (*Guard, *Tokens) {
	t.Helper()
	tokens := NewTokens("test-secret", time.Hour)
	return NewGuard(tokens, testCookie), tokens
}

func echoPrincipal(t *testing.T, got *Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := FromContext(r.Context()); ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestPrincipalFromCookie(t *testing.T) {
	guard, tokens := newTestGuard(t)

	raw, err := tokens.Issue(7, false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: raw})
	rec := httptest.NewRecorder()

	guard.Principal(echoPrincipal(t, &got)).ServeHTTP(rec, req)

	if got.UserID != 7 {
		t.Errorf("Principal UserID = %d, want 7", got.UserID)
	}
}

func TestPrincipalFromBearer(t *testing.T) {
	guard, tokens := newTestGuard(t)

	raw, err := tokens.Issue(9, true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	guard.Principal(echoPrincipal(t, &got)).ServeHTTP(rec, req)

	if got.UserID != 9 || !got.Admin {
		t.Errorf("Principal = %+v, want UserID 9 admin", got)
	}
}

func TestMalformedTokenIsAnonymous(t *testing.T) {
	guard, _ := newTestGuard(t)

	var got Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	guard.Principal(echoPrincipal(t, &got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Anonymous pass-through expected 200, got %d", rec.Code)
	}
	if got.UserID != 0 {
		t.Errorf("Expected no principal, got %+v", got)
	}
}

func TestRequireUser(t *testing.T) {
	guard, tokens := newTestGuard(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := guard.Principal(guard.RequireUser(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous request expected 401, got %d", rec.Code)
	}

	raw, _ := tokens.Issue(1, false)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Authenticated request expected 200, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	guard, tokens := newTestGuard(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := guard.Principal(guard.RequireAdmin(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous request expected 401, got %d", rec.Code)
	}

	raw, _ := tokens.Issue(1, false)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Non-admin request expected 403, got %d", rec.Code)
	}

	raw, _ = tokens.Issue(2, true)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Admin request expected 200, got %d", rec.Code)
	}
}
