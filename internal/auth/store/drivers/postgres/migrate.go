package postgres

import (
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/internal/auth/store/drivers/postgres/migrations"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ApplyMigrations runs the embedded postgres migrations. golang-migrate
// speaks database/sql, so it gets a short-lived *sql.DB over the pool.
func (s *Store) ApplyMigrations() error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}
	return store.Migrate(migrations.Migrations, "pgx5", driver)
}
