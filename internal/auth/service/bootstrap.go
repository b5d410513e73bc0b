package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

type BootstrapService struct {
	Store    store.Store
	Accounts *AccountService
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Accounts().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// EnsureAdmin creates the first administrator on an empty database. It
// returns ErrBootstrapAlready once any account exists.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, req domain.BootstrapData) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	if bootstrapped {
		return domain.Account{}, ErrBootstrapAlready
	}

	acct, err := s.Accounts.CreateAccount(ctx, domain.NewAccount{
		Username: req.AdminUsername,
		Password: req.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		l.Error("failed to create bootstrap admin", "error", err)
		return domain.Account{}, err
	}

	l.Info("bootstrap admin created", "account_id", acct.ID, "username", acct.Username)
	return acct, nil
}
