// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ratesync/internal/platform/config"
	"github.com/taibuivan/ratesync/internal/platform/sec"
)

// NewTokenCommand creates the token command, which prints a signed session token.
func NewTokenCommand() *cobra.Command {
	var (
		userID        int64
		upstreamToken string
		ttl           time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for a tracking-service user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case userID <= 0:
				return errors.New("--user must be a positive user id")
			case upstreamToken == "":
				return errors.New("--upstream-token is required")
			case ttl <= 0:
				return errors.New("--ttl must be a positive duration")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tokens, err := sec.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}

			signed, err := tokens.GenerateAccessToken(userID, upstreamToken, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "tracking-service user id")
	cmd.Flags().StringVarP(&upstreamToken, "upstream-token", "t", "", "OAuth access token for the tracking service")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
