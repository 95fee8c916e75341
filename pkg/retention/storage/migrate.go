package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies every pending schema migration for the configured driver.
// It opens a dedicated connection because the migration drivers close the
// database they are handed.
func Migrate(cfg *Config) error {
	cfg = cfg.withDefaults()
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return err
	}
	logger := slog.Default().With("component", "retention.storage.migrate")

	db, err := sql.Open(d.driver, d.dsn(cfg))
	if err != nil {
		return NewStorageError(d.backend, "migrate_open", err)
	}

	var driver database.Driver
	switch d.backend {
	case backendPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		if d.driver == driverModernc {
			driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		} else {
			driver, err = migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
		}
	}
	if err != nil {
		db.Close()
		return NewStorageError(d.backend, "migrate_driver", err)
	}

	source, err := iofs.New(migrationsFS, d.migrations)
	if err != nil {
		driver.Close()
		return NewStorageError(d.backend, "migrate_source", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.driver, driver)
	if err != nil {
		source.Close()
		driver.Close()
		return NewStorageError(d.backend, "migrate_init", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return NewStorageError(d.backend, "migrate_up", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return NewStorageError(d.backend, "migrate_version", fmt.Errorf("read schema version: %w", err))
	}
	logger.Info("schema migrations applied",
		"driver", d.driver,
		"version", version,
		"dirty", dirty,
	)
	return nil
}
