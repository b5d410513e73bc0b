package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

// writeServiceError maps service errors onto the wire. Anything unknown is
// logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidBase32):
		authsdk.ErrInvalidBase32.WriteError(w)
	case errors.Is(err, service.ErrSecretEnvelopeInput):
		authsdk.ErrInvalidBase32.WithDescription("secret must be supplied as raw base32").WriteError(w)
	case errors.Is(err, service.ErrSecretConflict):
		authsdk.ErrDuplicateSecret.WriteError(w)
	case errors.Is(err, service.ErrInvalidAccountRole):
		authsdk.ErrInvalidAccountRole.WriteError(w)
	case errors.Is(err, service.ErrInvalidRole):
		authsdk.ErrInvalidRole.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrUsernameTaken.WriteError(w)
	case errors.Is(err, service.ErrAccountNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrTOTPRequired):
		authsdk.ErrTOTPRequired.WriteError(w)
	case errors.Is(err, service.ErrInvalidTOTPCode):
		authsdk.ErrInvalidTOTP.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
