// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/cache"
)

var (
	flagCleanupDays   int
	flagCleanupDryRun bool
)

type cleanupResult struct {
	PantryItems   int64 `json:"pantry_items"`
	ShoppingItems int64 `json:"shopping_items"`
	CacheEntries  int   `json:"cache_entries"`
	DryRun        bool  `json:"dry_run"`
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove long-expired pantry items, old checked shopping items and stale cache entries",
	Long: "Delete pantry items that expired more than --expired-days days ago, checked shopping " +
		"list items last touched more than --expired-days days ago, and expired cache entries. " +
		"With --dry-run the database rows are only counted and the cache is left alone.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagCleanupDays < 0 {
			return errors.New("--expired-days must not be negative")
		}
		ctx := cmd.Context()
		conn, cfg, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		res, err := cleanupDatabase(ctx, conn, flagCleanupDays, flagCleanupDryRun)
		if err != nil {
			return err
		}
		// A memory store would start empty, so only a cache file is swept
		if !flagCleanupDryRun && cfg.CachePath != "" {
			res.CacheEntries, err = sweepCache(ctx, cfg.CachePath)
			if err != nil {
				return err
			}
		}

		return render(cmd.OutOrStdout(), res,
			[]string{"Pantry items", "Shopping items", "Cache entries", "Dry run"},
			[][]string{{
				strconv.FormatInt(res.PantryItems, 10),
				strconv.FormatInt(res.ShoppingItems, 10),
				strconv.Itoa(res.CacheEntries),
				strconv.FormatBool(res.DryRun),
			}})
	},
}

const (
	expiredPantryWhere = `expiration_date < CURRENT_DATE - $1::int`
	staleShoppingWhere = `checked AND updated_at < NOW() - make_interval(days => $1::int)`
)

// cleanupDatabase deletes (or with dryRun counts) pantry items expired
// more than days ago and checked shopping items older than days.
func cleanupDatabase(ctx context.Context, db *sql.DB, days int, dryRun bool) (cleanupResult, error) {
	res := cleanupResult{DryRun: dryRun}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	targets := []struct {
		table string
		where string
		n     *int64
	}{
		{"pantry_items", expiredPantryWhere, &res.PantryItems},
		{"shopping_list_items", staleShoppingWhere, &res.ShoppingItems},
	}
	for _, t := range targets {
		// Table and condition come from the fixed list above.
		if dryRun {
			err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table+" WHERE "+t.where, days).Scan(t.n)
		} else {
			var r sql.Result
			r, err = tx.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE "+t.where, days)
			if err == nil {
				*t.n, err = r.RowsAffected()
			}
		}
		if err != nil {
			return res, fmt.Errorf("failed to clean %s: %w", t.table, err)
		}
	}

	if dryRun {
		return res, nil
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	slog.Info("cleanup done", "pantry_items", res.PantryItems, "shopping_items", res.ShoppingItems, "days", days)
	return res, nil
}

// sweepCache drops expired entries from the cache file at path
func sweepCache(ctx context.Context, path string) (int, error) {
	store, closeFn, err := cache.OpenStore(ctx, path)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return cache.NewManager(store, cache.Options{}).EvictStale(ctx)
}

func init() {
	cleanupCmd.Flags().IntVar(&flagCleanupDays, "expired-days", 7, "Grace period in days")
	cleanupCmd.Flags().BoolVar(&flagCleanupDryRun, "dry-run", false, "Count without deleting")
}
