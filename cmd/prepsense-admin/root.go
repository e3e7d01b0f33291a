// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/db"
)

var (
	flagConfig      string
	flagDatabaseURL string
	flagOutput      string
)

var rootCmd = &cobra.Command{
	Use:           "prepsense-admin",
	Short:         "Maintenance commands for the PrepSense database and cache",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch flagOutput {
		case "", outputTable, outputJSON:
			return nil
		}
		return fmt.Errorf("--output must be %q or %q", outputTable, outputJSON)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file (default $PREPSENSE_CONFIG)")
	pf.StringVar(&flagDatabaseURL, "database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	pf.StringVarP(&flagOutput, "output", "o", "", "Output format: table or json (default table on a terminal)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(pantryCmd)
	rootCmd.AddCommand(recipesCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig reads the shared configuration and installs the logger.
// Flags given to this command win over the file and environment.
func loadConfig() (cliparse.Config, error) {
	cfg, err := cliparse.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDatabaseURL != "" {
		cfg.DatabaseURL = flagDatabaseURL
	}

	level, err := cliparse.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(cliparse.NewLogger(os.Stderr, level))
	return cfg, nil
}

var errNoDatabaseURL = errors.New("database URL is required (--database-url or DATABASE_URL)")

// openDB loads the config and connects to Postgres
func openDB(ctx context.Context) (*sql.DB, cliparse.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	if cfg.DatabaseURL == "" {
		return nil, cfg, errNoDatabaseURL
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, cfg, err
	}
	return conn, cfg, nil
}
