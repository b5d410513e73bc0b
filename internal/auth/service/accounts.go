package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/aussiebroadwan/dide/pkg/slogx"
	"github.com/aussiebroadwan/dide/pkg/totpx"
)

type AccountService struct {
	Store   store.Store
	Secrets *SecretService
}

// CreateAccount provisions an account. A secret supplied for a
// non-supervisor is rejected with ErrInvalidAccountRole.
func (s *AccountService) CreateAccount(ctx context.Context, req domain.NewAccount) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if !req.Role.Valid() {
		return domain.Account{}, ErrInvalidRole
	}

	acct := domain.Account{
		Username: req.Username,
		Role:     req.Role,
	}

	if strings.TrimSpace(req.TwoFactorSecret) != "" {
		if !req.Role.MayHoldSecret() {
			return domain.Account{}, ErrInvalidAccountRole
		}
		if cryptox.IsEnvelope(strings.TrimSpace(req.TwoFactorSecret)) {
			return domain.Account{}, ErrSecretEnvelopeInput
		}
		secret, err := totpx.Canonical(req.TwoFactorSecret)
		if err != nil {
			return domain.Account{}, ErrInvalidBase32
		}
		acct.TwoFactorSecret = secret
		acct.TwoFactorNormHash = NormalizedHash(secret)
		acct.TwoFactorEnabled = true
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash password", "error", err)
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acct.PasswordHash = hash

	id, err := s.Store.Accounts().CreateAccount(ctx, acct)
	switch {
	case errors.Is(err, store.ErrConflict):
		return domain.Account{}, ErrSecretConflict
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.Account{}, ErrUsernameTaken
	case err != nil:
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	acct.ID = id

	l.Info("account created", "account_id", id, "role", string(acct.Role))

	if acct.TwoFactorSecret != "" {
		secretTransitions.WithLabelValues(domain.SecretPlaintext.String(), "set").Inc()
		s.Secrets.publish(ctx, id)
	}

	return s.GetAccount(ctx, id)
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return acct, err
}

// ChangeRole sets the account's role. Leaving the supervisor role drops the
// TOTP secret in the same write.
func (s *AccountService) ChangeRole(ctx context.Context, id int64, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	err := s.Store.Accounts().UpdateRole(ctx, id, role)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if !role.MayHoldSecret() {
		secretTransitions.WithLabelValues(domain.SecretAbsent.String(), "role_change").Inc()
	}
	slogx.FromContext(ctx).Info("account role changed", "account_id", id, "role", string(role))
	return nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, id int64) error {
	err := s.Store.Accounts().DeleteAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slogx.FromContext(ctx).Info("account deleted", "account_id", id)
	return nil
}
