package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey struct{}

var principalKey contextKey

// FromContext returns the request's principal and whether one is present.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal is used by tests and the middleware below.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Guard resolves an optional principal from the session cookie or a bearer
// token and gates state-mutating routes by required principal class.
type Guard struct {
	tokens     *Tokens
	cookieName string
}

func NewGuard(tokens *Tokens, cookieName string) *Guard {
	return &Guard{tokens: tokens, cookieName: cookieName}
}

// Principal is the outer middleware: it attaches a principal to the context
// when the request carries a valid token, and passes through anonymously
// otherwise. A malformed token is treated as anonymous here; the per-route
// guards below decide whether that is acceptable.
func (g *Guard) Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := g.extractToken(r); raw != "" {
			if p, err := g.tokens.Verify(raw); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) extractToken(r *http.Request) string {
	if c, err := r.Cookie(g.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// RequireUser rejects anonymous requests with 401.
func (g *Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			denyJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and authenticated
// non-admin requests with 403.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			denyJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if !p.Admin {
			denyJSON(w, http.StatusForbidden, "FORBIDDEN", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func denyJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "error": message})
}
