package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/dide/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidTOTP        = "invalid_totp"
	ErrorCodeTOTPRequired       = "totp_required"
	ErrorCodeInvalidBase32      = "invalid_base32"
	ErrorCodeDuplicateSecret    = "duplicate_secret"
	ErrorCodeInvalidAccountRole = "invalid_account_role"
	ErrorCodeInvalidRole        = "invalid_role"
	ErrorCodeUsernameTaken      = "username_taken"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeInsufficientScope  = "insufficient_scope"
	ErrorCodeServerError        = "server_error"
)

// APIError is the JSON error body of every failed request. It is written by
// the server and returned by the client.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so a decoded response compares equal to the predefined
// error with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// Login failures stay generic on purpose; none of them says which
	// factor was wrong beyond what the client already knows.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}
	ErrInvalidTOTP = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidTOTP,
		Description: "invalid code",
	}
	ErrTOTPRequired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTOTPRequired,
		Description: "a one-time code is required for this account",
	}

	ErrInvalidBase32 = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidBase32,
		Description: "secret must be a base32 string",
	}
	ErrDuplicateSecret = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeDuplicateSecret,
		Description: "this secret is already assigned to another supervisor",
	}
	ErrInvalidAccountRole = &APIError{
		StatusCode:  http.StatusUnprocessableEntity,
		Code:        ErrorCodeInvalidAccountRole,
		Description: "only supervisor accounts may hold a TOTP secret",
	}
	ErrInvalidRole = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRole,
		Description: "role must be one of user, supervisor, admin",
	}
	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "username already in use",
	}
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "account not found",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}
	ErrInsufficientScope = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not have the required scopes",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrSessionExpired is returned client-side without a request.
	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "session expired, log in again",
	}
)

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e APIError
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		e.StatusCode = resp.StatusCode
		return &e
	}

	// Bodies from outside the JSON handlers, e.g. insufficient scope.
	code := ErrorCodeServerError
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeInvalidToken
	case http.StatusForbidden:
		code = ErrorCodeInsufficientScope
	case http.StatusNotFound:
		code = ErrorCodeNotFound
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
