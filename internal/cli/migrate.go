// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ratesync/internal/platform/config"
	"github.com/taibuivan/ratesync/internal/platform/migration"
)

// errNoDatabase is returned when a migration is requested without DATABASE_URL.
var errNoDatabase = errors.New("DATABASE_URL is not set")

// NewMigrateCommand creates the migrate command and its up, down and version subcommands.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the preference schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(runner *migration.Runner) error {
				return runner.Up()
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(runner *migration.Runner) error {
				return runner.Down(steps)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(runner *migration.Runner) error {
				version, err := runner.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), version)
				return err
			})
		},
	})

	return cmd
}

func withRunner(cmd *cobra.Command, run func(runner *migration.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errNoDatabase
	}

	runner, err := migration.Open(cfg.DatabaseURL, cfg.MigrationPath, newLogger(cmd.ErrOrStderr(), cfg))
	if err != nil {
		return err
	}
	defer runner.Close()

	return run(runner)
}
