package postgres

import (
	"context"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, username, password_hash, role, two_factor_secret,
	two_factor_enabled, two_factor_norm_hash, created_at, updated_at`

type accountsRepo struct {
	db dbtx
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		a        domain.Account
		role     string
		secret   *string
		normHash *string
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&role,
		&secret,
		&a.TwoFactorEnabled,
		&normHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.Role = domain.Role(role)
	a.TwoFactorSecret = derefString(secret)
	a.TwoFactorNormHash = derefString(normHash)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (username, password_hash, role, two_factor_secret, two_factor_enabled, two_factor_norm_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.Username,
		a.PasswordHash,
		string(a.Role),
		nullIfEmpty(a.TwoFactorSecret),
		a.TwoFactorSecret != "",
		nullIfEmpty(a.TwoFactorNormHash),
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(username) = lower($1)`, username)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) SetTwoFactorSecret(ctx context.Context, id int64, secret, normHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET two_factor_secret = $1, two_factor_norm_hash = $2, two_factor_enabled = TRUE,
		    updated_at = now()
		WHERE id = $3`,
		secret, normHash, id,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(tag)
}

func (r *accountsRepo) ReplaceTwoFactorSecret(ctx context.Context, id int64, expected, replacement string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET two_factor_secret = $1, updated_at = now()
		WHERE id = $2 AND two_factor_secret = $3`,
		replacement, id, expected,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *accountsRepo) ClearTwoFactorSecret(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET two_factor_secret = NULL, two_factor_norm_hash = NULL, two_factor_enabled = FALSE,
		    updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *accountsRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET role = $1::text,
		    two_factor_secret    = CASE WHEN $2::bool THEN two_factor_secret ELSE NULL END,
		    two_factor_norm_hash = CASE WHEN $2::bool THEN two_factor_norm_hash ELSE NULL END,
		    two_factor_enabled   = CASE WHEN $2::bool THEN two_factor_enabled ELSE FALSE END,
		    updated_at = now()
		WHERE id = $3`,
		string(role), role.MayHoldSecret(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *accountsRepo) ListPlaintextSecretAccounts(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM accounts
		WHERE role = 'supervisor'
		  AND COALESCE(two_factor_secret, '') <> ''
		  AND substr(two_factor_secret, 1, 7) <> 'enc:v1:'
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts)`).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}
