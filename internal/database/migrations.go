// Package database migrates the PostgreSQL run history schema.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrDirtySchema is returned when a previous migration stopped half way
var ErrDirtySchema = errors.New("history schema is dirty; fix it by hand and force the version")

// MigrationRunner applies the embedded compliance_runs migrations
type MigrationRunner struct {
	m      *migrate.Migrate
	logger *logrus.Logger
}

// NewMigrationRunner opens the embedded migrations against databaseURL
func NewMigrationRunner(databaseURL string, logger *logrus.Logger) (*MigrationRunner, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect migrations to history database: %w", err)
	}
	return &MigrationRunner{m: m, logger: logger}, nil
}

// Migrate brings the history schema up to date
func Migrate(ctx context.Context, databaseURL string, logger *logrus.Logger) error {
	runner, err := NewMigrationRunner(databaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close migration runner")
		}
	}()
	return runner.Up(ctx)
}

// Up applies every pending migration
func (r *MigrationRunner) Up(ctx context.Context) error {
	return r.apply("up", r.m.Up)
}

// Down reverts the most recent migration
func (r *MigrationRunner) Down(ctx context.Context) error {
	return r.apply("down", func() error { return r.m.Steps(-1) })
}

func (r *MigrationRunner) apply(direction string, fn func() error) error {
	if _, dirty, err := r.m.Version(); err == nil && dirty {
		return ErrDirtySchema
	}

	err := fn()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.logger.WithField("direction", direction).Debug("History schema already at target version")
		return nil
	case err != nil:
		return fmt.Errorf("history migration %s failed: %w", direction, err)
	}

	entry := r.logger.WithField("direction", direction)
	if version, _, verr := r.m.Version(); verr == nil {
		entry = entry.WithField("version", version)
	}
	entry.Info("History schema migrated")
	return nil
}

// Version reports the applied schema version and whether it is dirty
func (r *MigrationRunner) Version() (uint, bool, error) {
	return r.m.Version()
}

// Close releases the migration source and database handles
func (r *MigrationRunner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}
