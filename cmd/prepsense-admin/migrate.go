// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/db"
)

var flagMigrateReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long:  "Create every table and index that does not exist yet. With --reset all tables are dropped first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, _, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		if flagMigrateReset {
			if err := db.DropSchema(conn); err != nil {
				return err
			}
			slog.Warn("all tables dropped")
		}
		if err := db.CreateSchema(conn); err != nil {
			return err
		}
		counts, err := db.CountRows(cmd.Context(), conn)
		if err != nil {
			return err
		}
		return renderCounts(cmd.OutOrStdout(), counts)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&flagMigrateReset, "reset", false, "Drop all tables before creating them")
}
