package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/aussiebroadwan/dide/pkg/idx"
	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

// dummyHash keeps the unknown-user path as slow as a real password check.
// It is computed lazily because hashing reads the pepper file.
var dummyHash = sync.OnceValue(func() string {
	h, _ := cryptox.HashPassword("dide-unknown-account")
	return h
})

type LoginService struct {
	Store     store.Store
	Secrets   *SecretService
	Signer    jwtx.Signer
	Issuer    string
	AccessTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Login checks the password and, for supervisors with 2FA enabled, the TOTP
// code, then issues an access token.
func (s *LoginService) Login(ctx context.Context, username, password, code string) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	acct, err := s.Store.Accounts().GetAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		_ = cryptox.VerifyPassword(password, dummyHash())
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(password, acct.PasswordHash); err != nil {
		l.Info("login rejected", "account_id", acct.ID, "reason", "password")
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	amr := []string{"pwd"}
	if acct.Role.MayHoldSecret() && acct.TwoFactorEnabled {
		if strings.TrimSpace(code) == "" {
			return domain.LoginResult{}, ErrTOTPRequired
		}
		if !s.Secrets.verifyAccount(ctx, acct, code) {
			l.Info("login rejected", "account_id", acct.ID, "reason", "totp")
			return domain.LoginResult{}, ErrInvalidTOTPCode
		}
		amr = append(amr, "otp", "mfa")
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.AccessToken{
		Issuer:    s.Issuer,
		Subject:   strconv.FormatInt(acct.ID, 10),
		SessionID: idx.New().String(),
		Username:  acct.Username,
		Role:      string(acct.Role),
		Scopes:    acct.Role.Scopes(),
		AMR:       amr,
		TTL:       ttl,
		IssuedAt:  s.now(),
	}.Claims()

	token, err := s.Signer.Sign(claims)
	if err != nil {
		l.Error("failed to sign access token", "account_id", acct.ID, "error", err)
		return domain.LoginResult{}, err
	}

	l.Info("login succeeded", "account_id", acct.ID, "role", string(acct.Role))

	return domain.LoginResult{
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
		Account:     acct,
		AMR:         amr,
	}, nil
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
