// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cli defines the ratesync command tree.

Commands:

  - serve: run the HTTP gateway (default).
  - migrate: apply or roll back the preference schema.
  - token: mint a session token for a user, for local testing.

Every command reads its settings from the environment through [config.Load].
*/
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ratesync/internal/platform/config"
	"github.com/taibuivan/ratesync/internal/platform/constants"
)

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand(version string) *cobra.Command {
	serve := NewServeCommand()

	cmd := &cobra.Command{
		Use:           constants.AppName,
		Short:         "List synchronization gateway for an anime and manga tracker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewTokenCommand())

	return cmd
}

// newLogger builds the JSON logger every command uses, tagged with the app name.
func newLogger(output io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	return logger.With(slog.String(constants.FieldApp, constants.AppName))
}
