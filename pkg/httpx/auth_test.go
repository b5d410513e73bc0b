package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/pkg/httpx"
	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestAuthnAndScopes(t *testing.T) {
	secret := []byte("httpx-test-secret-0123456789")
	signer, err := jwtx.NewSignerHS256(secret, "dide-auth")
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, "dide-auth")
	require.NoError(t, err)

	token := func(scopes ...string) string {
		tok, err := signer.Sign(jwtx.AccessToken{
			Subject:   "7",
			SessionID: "sid",
			Username:  "alice",
			Role:      "supervisor",
			Scopes:    scopes,
			AMR:       []string{"pwd"},
			TTL:       time.Hour,
		}.Claims())
		require.NoError(t, err)
		return tok
	}

	var seen jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}),
		httpx.AuthnMiddleware(verifier),
		httpx.RequireAnyScope("admin:write"),
	)

	serve := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := serve("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, serve("Bearer nope").Code)
	})

	t.Run("missing scope", func(t *testing.T) {
		rec := serve("Bearer " + token("profile:read"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("allowed", func(t *testing.T) {
		rec := serve("Bearer " + token("profile:read", "admin:write"))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "7", seen.Subject)
		require.Equal(t, "supervisor", seen.Role)
	})
}
