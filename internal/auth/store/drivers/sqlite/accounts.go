package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
)

const accountColumns = `id, username, password_hash, role, two_factor_secret,
	two_factor_enabled, two_factor_norm_hash, created_at, updated_at`

type accountsRepo struct {
	db dbtx
}

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a        domain.Account
		role     string
		secret   sql.NullString
		normHash sql.NullString
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
	a.TwoFactorSecret = mapNullString(secret)
	a.TwoFactorNormHash = mapNullString(normHash)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, role, two_factor_secret, two_factor_enabled, two_factor_norm_hash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Username,
		a.PasswordHash,
		string(a.Role),
		mapStringNull(a.TwoFactorSecret),
		a.TwoFactorSecret != "",
		mapStringNull(a.TwoFactorNormHash),
	)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return res.LastInsertId()
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) SetTwoFactorSecret(ctx context.Context, id int64, secret, normHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET two_factor_secret = ?, two_factor_norm_hash = ?, two_factor_enabled = 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		secret, normHash, id,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(res)
}

func (r *accountsRepo) ReplaceTwoFactorSecret(ctx context.Context, id int64, expected, replacement string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET two_factor_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND two_factor_secret = ?`,
		replacement, id, expected,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *accountsRepo) ClearTwoFactorSecret(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET two_factor_secret = NULL, two_factor_norm_hash = NULL, two_factor_enabled = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	keep := role.MayHoldSecret()
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET role = ?,
		    two_factor_secret    = CASE WHEN ? THEN two_factor_secret ELSE NULL END,
		    two_factor_norm_hash = CASE WHEN ? THEN two_factor_norm_hash ELSE NULL END,
		    two_factor_enabled   = CASE WHEN ? THEN two_factor_enabled ELSE 0 END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(role), keep, keep, keep, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) ListPlaintextSecretAccounts(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM accounts
		WHERE role = 'supervisor'
		  AND COALESCE(two_factor_secret, '') <> ''
		  AND substr(two_factor_secret, 1, 7) <> 'enc:v1:'
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
