// Package middleware adapts the engine's authorization gate to
// net/http. The Authorization header takes precedence over the
// session cookie; a present but unusable header is rejected without
// consulting the cookie.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authcore "github.com/vocalia/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity the Guard attached.
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return id, ok
}

// Guard authorizes every request through the engine and attaches the
// resulting identity to the request context. Optional roles restrict
// which identities pass.
func Guard(engine *authcore.Engine, roles ...authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.Authorize(r.Context(), requestToken(r), roles...)
			if err != nil {
				writeRejection(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestToken extracts the bearer token: Authorization header first,
// session cookie only when no header is present at all.
func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return bearerToken(header)
	}
	if c, err := r.Cookie(authcore.TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(value string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return ""
	}
	return value[len(prefix):]
}

func writeRejection(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authcore.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, authcore.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, authcore.ErrStoreUnavailable):
		// An outage is not an authorization verdict; a 401 here would
		// make clients discard a valid session.
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}
