package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

type claimsKey struct{}

// ClaimsFromContext returns the verified token claims set by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(jwtx.Claims)
	return c, ok
}

// AuthnMiddleware requires a valid bearer token and exposes its claims to
// downstream handlers.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			raw, ok := bearerToken(r)
			if !ok {
				invalidToken(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			switch {
			case errors.Is(err, jwtx.ErrExpired):
				invalidToken(w, "token expired")
				return
			case err != nil:
				log.Warn("bearer token rejected", "err", err)
				invalidToken(w, "token verification failed")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = slogx.WithContext(ctx, log.With("sub", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyScope admits callers holding at least one of scopes. It must run
// after AuthnMiddleware.
func RequireAnyScope(scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if slices.ContainsFunc(scopes, claims.HasScope) {
				next.ServeHTTP(w, r)
				return
			}
			want := strings.Join(scopes, " ")
			writeChallenge(w, http.StatusForbidden,
				fmt.Sprintf(`Bearer error="insufficient_scope", scope=%q`, want),
				errorBody{Code: "insufficient_scope", Description: "requires one of: " + want})
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func invalidToken(w http.ResponseWriter, desc string) {
	writeChallenge(w, http.StatusUnauthorized,
		fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, desc),
		errorBody{Code: "invalid_token", Description: desc})
}
