package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate brings the schema behind driver up to the newest migration in
// files. A schema that is already current is not an error.
func Migrate(files fs.FS, driverName string, driver database.Driver) error {
	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("%s: read migrations: %w", driverName, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return fmt.Errorf("%s: prepare migrations: %w", driverName, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: apply migrations: %w", driverName, err)
	}
	return nil
}
