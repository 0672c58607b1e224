package middleware

import (
	"context"
	"net/http"
	"strings"

	parcelauth "github.com/capstone/parcelauth"
)

type identityContextKey struct{}

// IdentityFromContext extracts the authenticated identity injected by
// [Authenticate]. The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (parcelauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(parcelauth.Identity)
	return id, ok
}

// Authenticate verifies the bearer token, when one is present, and
// attaches the resulting identity to the request context. A missing or
// invalid token degrades the request to anonymous instead of rejecting
// it; route-level policy decides whether anonymous is acceptable.
func Authenticate(engine *parcelauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects anonymous requests with 401. Mount it after
// [Authenticate] on routes that need an authenticated caller.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
