package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the DiDe authentication service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates with a password and, for supervisors with 2FA
// enabled, a one-time code. Pass an empty code to find out whether one is
// needed: the error is then ErrTOTPRequired.
func (c *SDKClient) Login(ctx context.Context, username, password, code string) (*Session, error) {
	var login LoginResponse
	req := LoginRequest{Username: username, Password: password, TOTP: code}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/login", "", req, &login, http.StatusOK); err != nil {
		return nil, err
	}

	return newSession(c, &login), nil
}

// NewSessionFromToken wraps an access token obtained elsewhere.
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresIn int64) *Session {
	return newSession(c, &LoginResponse{AccessToken: accessToken, TokenType: "Bearer", ExpiresIn: expiresIn})
}
