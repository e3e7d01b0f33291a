// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/importer"
)

var flagSeedEmail string

type seedResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	APIKey string `json:"api_key,omitempty"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo user with a stocked pantry and recipes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		email := flagSeedEmail
		if email == "" {
			email = importer.DefaultDemoEmail
		}
		userID, err := importer.SeedDemo(cmd.Context(), conn, email)
		if err != nil {
			return err
		}

		res := seedResult{UserID: userID, Email: email}
		if cfg.UserKeySalt != "" {
			res.APIKey = auth.GenerateUserKey(userID, cfg.UserKeySalt)
		} else {
			slog.Warn("USER_KEY_SALT not set, cannot derive the demo API key")
		}

		return render(cmd.OutOrStdout(), res,
			[]string{"User ID", "Email", "API key"},
			[][]string{{res.UserID, res.Email, res.APIKey}})
	},
}

func init() {
	seedCmd.Flags().StringVar(&flagSeedEmail, "email", "", "Demo user email (default "+importer.DefaultDemoEmail+")")
}
