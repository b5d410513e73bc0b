package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrDuplicateSecret.WithDescription("taken").WriteError(w)
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)
	session := client.NewSessionFromToken("token", 3600)

	err := session.SetTOTPSecret(context.Background(), 7, "JBSWY3DPEHPK3PXP")
	require.ErrorIs(t, err, ErrDuplicateSecret)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, "taken", apiErr.Description)
}

func TestParseErrorResponseFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   *APIError
	}{
		{http.StatusUnauthorized, ErrInvalidToken},
		{http.StatusForbidden, ErrInsufficientScope},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := parseErrorResponse(&http.Response{StatusCode: tt.status}, []byte("insufficient_scope"))
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusNoContent}, nil))
}

func TestExpiredSessionFailsLocally(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	session := NewSDKClient(srv.URL).NewSessionFromToken("token", 10)

	err := session.DeleteAccount(context.Background(), 1)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, called)
}
