package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/gsx/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded schema of the gsx state database.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new migrator instance.
func NewMigrator(db *sql.DB, logger log.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Migrator{
		db:     db,
		logger: logger.WithValues(log.Kv{"svc": "storage.Migrator"}),
	}, nil
}

// Up brings the schema to the latest version.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "apply", (*migrate.Migrate).Up)
}

// Down reverts the whole schema, dropping every instance and task.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "revert", (*migrate.Migrate).Down)
}

func (m *Migrator) run(ctx context.Context, verb string, fn func(*migrate.Migrate) error) error {
	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not create fs: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Errorf("could not close fs: %s", err)
		}
	}()

	mg, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	err = fn(mg)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Debugf("Schema is up to date, nothing to %s", verb)
	case err != nil:
		return fmt.Errorf("could not %s migrations: %w", verb, err)
	default:
		version, dirty, _ := mg.Version()
		m.logger.Debugf("Migrations %sed, schema at version %d (dirty: %t)", verb, version, dirty)
	}

	return nil
}
