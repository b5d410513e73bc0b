package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHS256RoundTrip(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret, "dide-auth")
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret, "dide-auth")
	require.NoError(t, err)

	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.AccessToken{
		Subject:   "42",
		SessionID: "sid-1",
		Username:  "alice",
		Role:      "supervisor",
		Scopes:    []string{"admin:read"},
		AMR:       []string{"pwd", "otp", "mfa"},
		TTL:       time.Hour,
	}.Claims()

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", got.Subject)
	require.Equal(t, "dide-auth", got.Issuer, "signer fills in its issuer")
	require.Equal(t, "sid-1", got.SID)
	require.Equal(t, "supervisor", got.Role)
	require.Equal(t, []string{"admin:read"}, got.Scopes)
	require.Equal(t, []string{"pwd", "otp", "mfa"}, got.AMR)
}

func TestHS256Rejects(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret, "dide-auth")
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret, "dide-auth")
	require.NoError(t, err)

	t.Run("weak secret", func(t *testing.T) {
		_, err := jwtx.NewSignerHS256([]byte("short"), "dide-auth")
		require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwtx.AccessToken{Subject: "1", TTL: time.Minute, IssuedAt: time.Now().Add(-time.Hour)}.Claims()
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("other issuer", func(t *testing.T) {
		other, err := jwtx.NewSignerHS256(testSecret, "someone-else")
		require.NoError(t, err)
		token, err := other.Sign(jwtx.AccessToken{Subject: "1"}.Claims())
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := jwtx.NewSignerHS256([]byte(strings.Repeat("x", 32)), "dide-auth")
		require.NoError(t, err)
		token, err := other.Sign(jwtx.AccessToken{Subject: "1"}.Claims())
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("within leeway", func(t *testing.T) {
		claims := jwtx.AccessToken{Subject: "1", TTL: time.Minute, IssuedAt: time.Now().Add(-time.Minute - 10*time.Second)}.Claims()
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.NoError(t, err)
	})

	t.Run("issued in the future", func(t *testing.T) {
		claims := jwtx.AccessToken{Subject: "1", IssuedAt: time.Now().Add(time.Hour)}.Claims()
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrNotYetValid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.Error(t, err)
	})
}
