package domain

import (
	"strings"
	"time"
)

// secretEnvelopePrefix mirrors cryptox.EnvelopePrefix; domain stays free of
// crypto imports.
const secretEnvelopePrefix = "enc:v1:"

// SecretState is the lifecycle state of an account's TOTP secret.
type SecretState int

const (
	SecretAbsent SecretState = iota
	SecretPlaintext
	SecretEncrypted
)

func (s SecretState) String() string {
	switch s {
	case SecretPlaintext:
		return "plaintext"
	case SecretEncrypted:
		return "encrypted"
	default:
		return "absent"
	}
}

type Account struct {
	ID                int64
	Username          string
	PasswordHash      string // argon2 encoded
	Role              Role
	TwoFactorSecret   string // plaintext base32 or sealed envelope, empty when absent
	TwoFactorEnabled  bool
	TwoFactorNormHash string // digest of the normalized secret, empty when absent
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SecretState derives the secret's state from the stored value.
func (a Account) SecretState() SecretState {
	switch {
	case a.TwoFactorSecret == "":
		return SecretAbsent
	case strings.HasPrefix(a.TwoFactorSecret, secretEnvelopePrefix):
		return SecretEncrypted
	default:
		return SecretPlaintext
	}
}

// NewAccount is the input for provisioning an account.
type NewAccount struct {
	Username        string
	Password        string
	Role            Role
	TwoFactorSecret string // raw base32, only honored for supervisors
}

// LoginResult is returned after a successful password (+TOTP) login.
type LoginResult struct {
	AccessToken string
	ExpiresIn   int64 // seconds
	Account     Account
	AMR         []string
}
