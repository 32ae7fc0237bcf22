package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// IdentityKey carries the authenticated Identity in a request context.
const IdentityKey contextKey = "identity"

// CredentialFromRequest extracts the bearer credential from a handshake
// request. The standard Authorization header wins; browser WebSocket
// clients cannot set headers, so a token query parameter is accepted as
// the out-of-band fallback, mirroring the issuer's client contract.
func CredentialFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Middleware gates an HTTP handler behind bearer authentication.
// On success the Identity is injected into the request context for
// downstream handlers; on failure the request is rejected with 401.
func Middleware(validator *TokenValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := validator.Validate(CredentialFromRequest(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, identity)))
	})
}

// IdentityFromContext retrieves the Identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}
