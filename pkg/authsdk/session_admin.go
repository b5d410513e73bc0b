package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

func accountPath(id int64, suffix string) string {
	return fmt.Sprintf("/v1/admin/accounts/%d%s", id, suffix)
}

// CreateAccount provisions an account (requires admin:write).
func (s *Session) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	var acct AccountResponse
	if err := s.call(ctx, http.MethodPost, "/v1/admin/accounts", req, &acct, http.StatusCreated); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetAccount fetches an account (requires admin:read).
func (s *Session) GetAccount(ctx context.Context, id int64) (*AccountResponse, error) {
	var acct AccountResponse
	if err := s.call(ctx, http.MethodGet, accountPath(id, ""), nil, &acct, http.StatusOK); err != nil {
		return nil, err
	}
	return &acct, nil
}

// SetTOTPSecret assigns a base32 secret to a supervisor (requires
// admin:write). Separators and lowercase are accepted.
func (s *Session) SetTOTPSecret(ctx context.Context, id int64, base32 string) error {
	return s.call(ctx, http.MethodPut, accountPath(id, "/totp"), SetTOTPRequest{Base32: base32}, nil, http.StatusNoContent)
}

// ClearTOTPSecret removes an account's secret (requires admin:write).
func (s *Session) ClearTOTPSecret(ctx context.Context, id int64) error {
	return s.call(ctx, http.MethodDelete, accountPath(id, "/totp"), nil, nil, http.StatusNoContent)
}

// ChangeRole sets an account's role (requires admin:write). Leaving
// supervisor clears the account's secret.
func (s *Session) ChangeRole(ctx context.Context, id int64, role string) error {
	return s.call(ctx, http.MethodPut, accountPath(id, "/role"), ChangeRoleRequest{Role: role}, nil, http.StatusNoContent)
}

// DeleteAccount removes an account (requires admin:write).
func (s *Session) DeleteAccount(ctx context.Context, id int64) error {
	return s.call(ctx, http.MethodDelete, accountPath(id, ""), nil, nil, http.StatusNoContent)
}
