package sqldb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrateUp applies every pending migration. It runs on its own
// connection pool because the migrate drivers close the pool they are
// given.
func migrateUp(driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}

	var target database.Driver
	switch driver {
	case relationaldb.DriverPostgres:
		target, err = migratepg.WithInstance(db, &migratepg.Config{})
	case relationaldb.DriverSQLite:
		target, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("%w: %s", relationaldb.ErrInvalidDriver, driver)
	}
	if err != nil {
		db.Close()
		return err
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		target.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		source.Close()
		target.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %v", relationaldb.ErrMigrationFailed, err)
	}
	return nil
}
