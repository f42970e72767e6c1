// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the SQL files under data/migrations with
// golang-migrate. The serve command runs [Up] before accepting traffic and the
// migrate command exposes every operation.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Runner wraps a migrator bound to one database and one source directory.
type Runner struct {
	migrator *migrate.Migrate
	logger   *slog.Logger
}

/*
Open prepares a runner for dsn and the migrations found at path.

Parameters:
  - dsn: string (postgres:// URL)
  - path: string (filesystem directory)
  - logger: *slog.Logger

Returns:
  - *Runner: must be closed by the caller
  - error: source or database initialisation failures
*/
func Open(dsn string, path string, logger *slog.Logger) (*Runner, error) {
	migrator, err := migrate.New("file://"+path, pgx5DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("migration: failed to initialize: %w", err)
	}
	migrator.Log = &migrateLogger{logger: logger}

	return &Runner{migrator: migrator, logger: logger}, nil
}

// Up applies every pending migration. An up-to-date database is not an error.
func (runner *Runner) Up() error {
	from, err := runner.Version()
	if err != nil {
		return err
	}

	if err := runner.migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			runner.logger.Info("migration_already_up_to_date", slog.Uint64("version", uint64(from)))
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	to, _, _ := runner.migrator.Version()
	runner.logger.Info("migration_successful",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

// Down rolls back steps migrations.
func (runner *Runner) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migration: steps must be positive, got %d", steps)
	}
	if err := runner.migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: down failed: %w", err)
	}

	version, _, _ := runner.migrator.Version()
	runner.logger.Info("migration_rolled_back",
		slog.Int("steps", steps),
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// Version returns the applied version, zero when none. A dirty database is an error.
func (runner *Runner) Version() (uint, error) {
	version, dirty, err := runner.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migration: failed to get current version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration: database is dirty at version %d (manual intervention required)", version)
	}
	return version, nil
}

// Close releases the source and database handles.
func (runner *Runner) Close() {
	sourceErr, databaseErr := runner.migrator.Close()
	if sourceErr != nil {
		runner.logger.Error("migration_source_close_failed", slog.Any("error", sourceErr))
	}
	if databaseErr != nil {
		runner.logger.Error("migration_db_close_failed", slog.Any("error", databaseErr))
	}
}

// RunUp opens a runner, applies pending migrations and closes it.
func RunUp(dsn string, path string, logger *slog.Logger) error {
	runner, err := Open(dsn, path, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.Up()
}

// pgx5DSN rewrites postgres URLs to the pgx5:// scheme the driver registers.
func pgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

type migrateLogger struct {
	logger *slog.Logger
}

func (adapter *migrateLogger) Printf(format string, args ...any) {
	adapter.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (adapter *migrateLogger) Verbose() bool {
	return false
}
