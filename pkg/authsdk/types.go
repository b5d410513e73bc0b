package authsdk

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTP     string `json:"totp,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
	Role        string `json:"role"`
	HomePath    string `json:"home_path"`
}

type CreateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`

	// Base32 is an optional TOTP secret; only accepted for supervisors.
	Base32 string `json:"base32,omitempty"`
}

// AccountResponse never carries the secret itself.
type AccountResponse struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	SecretState      string `json:"secret_state"` // absent, plaintext, encrypted
}

type SetTOTPRequest struct {
	Base32 string `json:"base32"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Notify   string `json:"notify"`
}
