package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/aussiebroadwan/dide/pkg/slogx"
	"github.com/aussiebroadwan/dide/pkg/totpx"
	"github.com/hashicorp/go-multierror"
)

// Paths that drive the plaintext to encrypted transition. Used as log and
// metric labels.
const (
	PathSweep  = "sweep"
	PathNotify = "notify"
	PathHeal   = "heal"
)

const publishTimeout = 5 * time.Second

// SecretService owns the lifecycle of supervisor TOTP secrets: intake,
// encryption at rest and verification at login.
type SecretService struct {
	Store    store.Store
	Codec    *cryptox.SecretCodec
	Verifier *totpx.Verifier
	Channel  notify.Channel
}

// SweepResult summarises one pass over plaintext secrets.
type SweepResult struct {
	Scanned   int
	Encrypted int
	Skipped   int
	Failed    int
}

// NormalizedHash is the digest stored alongside a secret to enforce
// uniqueness. It is computed over the normalized base32 form so separators
// and case never produce distinct hashes.
func NormalizedHash(secret string) string {
	return cryptox.Fingerprint(totpx.Normalize(secret))
}

// SetSecret stores raw as the account's plaintext secret and announces the
// change once committed. Non-supervisor accounts have any secret cleared and
// get ErrInvalidAccountRole.
func (s *SecretService) SetSecret(ctx context.Context, accountID int64, raw string) error {
	l := slogx.FromContext(ctx)

	var roleRejected bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.Accounts().GetAccountByID(ctx, accountID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		// The role decides before the input is looked at: a non-supervisor
		// is refused and cleared whatever was submitted.
		if !acct.Role.MayHoldSecret() {
			roleRejected = true
			if acct.TwoFactorSecret == "" && acct.TwoFactorNormHash == "" {
				return nil
			}
			return tx.Accounts().ClearTwoFactorSecret(ctx, accountID)
		}

		if cryptox.IsEnvelope(strings.TrimSpace(raw)) {
			return ErrSecretEnvelopeInput
		}
		secret, err := totpx.Canonical(raw)
		if err != nil {
			return ErrInvalidBase32
		}

		err = tx.Accounts().SetTwoFactorSecret(ctx, accountID, secret, NormalizedHash(secret))
		if errors.Is(err, store.ErrConflict) {
			return ErrSecretConflict
		}
		return err
	})
	if err != nil {
		return err
	}

	if roleRejected {
		l.Warn("refused totp secret for non-supervisor", "account_id", accountID)
		return ErrInvalidAccountRole
	}

	secretTransitions.WithLabelValues(domain.SecretPlaintext.String(), "set").Inc()
	l.Info("totp secret assigned", "account_id", accountID)

	s.publish(ctx, accountID)
	return nil
}

// ClearSecret removes the account's secret and its hash.
func (s *SecretService) ClearSecret(ctx context.Context, accountID int64) error {
	err := s.Store.Accounts().ClearTwoFactorSecret(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("clear secret: %w", err)
	}

	secretTransitions.WithLabelValues(domain.SecretAbsent.String(), "clear").Inc()
	slogx.FromContext(ctx).Info("totp secret cleared", "account_id", accountID)
	return nil
}

// EncryptAccount seals the account's secret if it is still plaintext and
// reports whether it wrote anything. Absent and already sealed secrets are
// left alone. The write only lands if the column still holds the plaintext
// that was read, so a secret reassigned in the meantime is never overwritten.
func (s *SecretService) EncryptAccount(ctx context.Context, accountID int64, path string) (bool, error) {
	var sealed bool

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.Accounts().GetAccountByID(ctx, accountID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		if !acct.Role.MayHoldSecret() || acct.SecretState() != domain.SecretPlaintext {
			return nil
		}

		envelope, err := s.Codec.Encrypt(acct.TwoFactorSecret)
		if err != nil {
			return fmt.Errorf("encrypt secret: %w", err)
		}

		sealed, err = tx.Accounts().ReplaceTwoFactorSecret(ctx, accountID, acct.TwoFactorSecret, envelope)
		if err != nil {
			return fmt.Errorf("store envelope: %w", err)
		}
		return nil
	})
	if err != nil {
		encryptFailures.WithLabelValues(path).Inc()
		return false, err
	}

	if sealed {
		secretTransitions.WithLabelValues(domain.SecretEncrypted.String(), path).Inc()
		slogx.FromContext(ctx).Info("totp secret encrypted", "account_id", accountID, "path", path)
	}
	return sealed, nil
}

// Sweep encrypts every plaintext supervisor secret, one transaction per
// account. A failing account is logged and the sweep moves on; all failures
// are returned together. Cancelling ctx stops the sweep between accounts.
func (s *SecretService) Sweep(ctx context.Context) (SweepResult, error) {
	l := slogx.FromContext(ctx)
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	ids, err := s.Store.Accounts().ListPlaintextSecretAccounts(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list plaintext secrets: %w", err)
	}

	var (
		res  = SweepResult{Scanned: len(ids)}
		errs *multierror.Error
	)

	for _, id := range ids {
		if ctx.Err() != nil {
			l.Warn("totp sweep interrupted", "remaining", len(ids)-res.Encrypted-res.Skipped-res.Failed)
			break
		}

		sealed, err := s.EncryptAccount(context.WithoutCancel(ctx), id, PathSweep)
		switch {
		case err != nil:
			res.Failed++
			errs = multierror.Append(errs, fmt.Errorf("account %d: %w", id, err))
			l.Error("failed to encrypt totp secret", "account_id", id, "error", err)
		case sealed:
			res.Encrypted++
		default:
			res.Skipped++
		}
	}

	if res.Scanned > 0 {
		l.Info("totp sweep completed",
			slog.Int("scanned", res.Scanned),
			slog.Int("encrypted", res.Encrypted),
			slog.Int("skipped", res.Skipped),
			slog.Int("failed", res.Failed),
		)
	}

	return res, errs.ErrorOrNil()
}

// HandleNotification is the notify.Handler for secret change announcements.
func (s *SecretService) HandleNotification(ctx context.Context, accountID int64) error {
	_, err := s.EncryptAccount(context.WithoutCancel(ctx), accountID, PathNotify)
	return err
}

// VerifyLogin checks code against the account's secret. A successful check
// against a plaintext secret seals it before returning; a failed seal is
// logged and does not affect the result.
func (s *SecretService) VerifyLogin(ctx context.Context, accountID int64, code string) bool {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Debug("totp check on unknown account", "account_id", accountID, "error", err)
		totpVerifications.WithLabelValues("rejected").Inc()
		return false
	}
	return s.verifyAccount(ctx, acct, code)
}

func (s *SecretService) verifyAccount(ctx context.Context, acct domain.Account, code string) bool {
	if !acct.Role.MayHoldSecret() || acct.SecretState() == domain.SecretAbsent {
		totpVerifications.WithLabelValues("rejected").Inc()
		return false
	}

	ok, err := s.Verifier.Check(code, acct.TwoFactorSecret)
	if err != nil {
		// Usually a tampered row or a changed TOTP_ENC_KEY. The caller still
		// only sees an invalid code.
		totpVerifications.WithLabelValues("unreadable").Inc()
		slogx.FromContext(ctx).Error("stored totp secret could not be opened",
			"account_id", acct.ID,
			"secret_state", acct.SecretState().String(),
			"error_class", secretErrorClass(err),
			"error", err,
		)
		return false
	}
	if !ok {
		totpVerifications.WithLabelValues("rejected").Inc()
		return false
	}
	totpVerifications.WithLabelValues("accepted").Inc()

	if acct.SecretState() == domain.SecretPlaintext {
		if _, err := s.EncryptAccount(context.WithoutCancel(ctx), acct.ID, PathHeal); err != nil {
			slogx.FromContext(ctx).Error("failed to heal plaintext totp secret",
				"account_id", acct.ID,
				"error", err,
			)
		}
	}
	return true
}

func secretErrorClass(err error) string {
	switch {
	case errors.Is(err, cryptox.ErrEnvelopeAuth):
		return "envelope_auth"
	case errors.Is(err, cryptox.ErrMalformedEnvelope):
		return "envelope_malformed"
	default:
		return "not_base32"
	}
}

// publish runs after commit. A lost notification is recovered by the next
// sweep or login, so failures are only logged.
func (s *SecretService) publish(ctx context.Context, accountID int64) {
	if s.Channel == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.Channel.Publish(ctx, accountID); err != nil {
		slogx.FromContext(ctx).Warn("failed to publish totp secret change",
			"account_id", accountID,
			"error", err,
		)
	}
}
