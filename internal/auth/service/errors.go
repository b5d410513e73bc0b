package service

import "errors"

// Errors surfaced to the HTTP layer. The messages double as the wire error
// codes where a handler passes them through.
var (
	ErrInvalidBase32       = errors.New("invalid_base32")
	ErrSecretConflict      = errors.New("duplicate_secret")
	ErrInvalidAccountRole  = errors.New("invalid_account_role")
	ErrSecretEnvelopeInput = errors.New("secret must be supplied as raw base32")
	ErrAccountNotFound     = errors.New("account not found")
	ErrUsernameTaken       = errors.New("username already in use")
	ErrInvalidRole         = errors.New("unknown role")

	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidTOTPCode    = errors.New("invalid_totp")
	ErrTOTPRequired       = errors.New("totp_required")
)
