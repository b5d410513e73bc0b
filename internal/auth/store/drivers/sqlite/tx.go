package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/dide/internal/auth/store"
)

var errNestedTx = errors.New("sqlite: nested transactions are not supported")

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Accounts() store.Accounts { return &accountsRepo{db: t.tx} }

func (t *txStore) Commit() error { return t.tx.Commit() }

// Rollback returns nil after Commit so it can always be deferred.
func (t *txStore) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, errNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return errNestedTx }

// The remaining methods belong to the owning Store.

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) Close() error               { return nil }
