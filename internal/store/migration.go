package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrator applies the embedded schema migrations
type migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

func newMigrator(db *sql.DB, logger *zap.Logger) (*migrator, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator instance: %w", err)
	}

	return &migrator{migrate: instance, logger: logger}, nil
}

// run executes pending migrations
func (m *migrator) run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			errChan <- fmt.Errorf("migration failed: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("Migration cancelled by context")
		return fmt.Errorf("migration cancelled: %w", ctx.Err())
	case err := <-errChan:
		if err != nil {
			return err
		}
		version, dirty, _ := m.migrate.Version()
		m.logger.Debug("Settings schema up to date",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty))
		return nil
	}
}
