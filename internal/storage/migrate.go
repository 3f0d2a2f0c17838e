package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var kvMigrations embed.FS

// migrateKVSchema brings the kv table at dbPath up to the latest embedded
// version. It is a no-op when the schema is current.
func migrateKVSchema(dbPath string) error {
	// The migrator closes its database on exit, so it gets its own handle
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open kv schema database: %w", err)
	}
	defer db.Close()

	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("kv schema driver: %w", err)
	}
	source, err := iofs.New(kvMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("kv schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return fmt.Errorf("kv schema migrator: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate kv schema: %w", err)
	}
	return nil
}
