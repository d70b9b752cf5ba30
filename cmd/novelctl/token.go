// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/sec"
	"github.com/taibuivan/truyen/pkg/uuid"
)

type tokenFlags struct {
	privateKey string
	publicKey  string
	userID     string
	username   string
	role       string
	ttl        time.Duration
}

func newTokenCommand() *cobra.Command {
	flags := &tokenFlags{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := sec.ParseRole(flags.role)
			if err != nil {
				return err
			}

			userID := flags.userID
			if userID == "" {
				userID = uuid.New()
			} else if !uuid.Valid(userID) {
				return fmt.Errorf("--user must be a UUID")
			}

			tokens, err := sec.NewTokenService(flags.privateKey, flags.publicKey, constants.AuthIssuer)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateAccessToken(userID, flags.username, role, flags.ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.privateKey, "private-key", os.Getenv("JWT_PRIVATE_KEY_PATH"), "PEM private key")
	cmd.Flags().StringVar(&flags.publicKey, "public-key", os.Getenv("JWT_PUBLIC_KEY_PATH"), "PEM public key")
	cmd.Flags().StringVar(&flags.userID, "user", "", "user ID (random when empty)")
	cmd.Flags().StringVar(&flags.username, "name", "dev", "username")
	cmd.Flags().StringVar(&flags.role, "role", string(sec.RoleAuthor), "role: member, author, moderator or admin")
	cmd.Flags().DurationVar(&flags.ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
