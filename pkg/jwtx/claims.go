package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL covers a working shift; there are no refresh tokens.
const DefaultAccessTokenTTL = 12 * time.Hour

// Claims carried by DiDe access tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Session id, one per login.
	SID string `json:"sid,omitempty"`

	// Scopes granted by the role, e.g. "admin:write".
	Scopes []string `json:"scopes,omitempty"`

	// Authentication methods used at login:
	//	"pwd" password
	//	"otp" one-time code
	//	"mfa" more than one factor
	AMR []string `json:"amr,omitempty"`

	Username string `json:"username,omitempty"`

	// Role at issue time. A role change takes effect on the next login.
	Role string `json:"role,omitempty"`
}

// AccessToken describes a token to mint. See Claims.
type AccessToken struct {
	Issuer    string
	Subject   string
	SessionID string
	Username  string
	Role      string
	Scopes    []string
	AMR       []string
	TTL       time.Duration // DefaultAccessTokenTTL when zero
	IssuedAt  time.Time
}

// Claims stamps t's times and a fresh jti.
func (t AccessToken) Claims() Claims {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	iat := t.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   t.Subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
			ID:        newJTI(),
		},
		SID:      t.SessionID,
		Scopes:   t.Scopes,
		AMR:      t.AMR,
		Username: t.Username,
		Role:     t.Role,
	}
}

// HasScope reports whether the token grants scope.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// UsedMethod reports whether method is listed in the amr claim.
func (c Claims) UsedMethod(method string) bool {
	return slices.Contains(c.AMR, method)
}

func newJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
