// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache store maintenance",
}

var flagCacheTestPath string

var cacheTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the cache guardrail scenarios against a store",
	Long: "Exercise the configured cache store (or --cache-path) with round trip, expiry, " +
		"invalidation, sweep, single-flight and alert scenarios. Exits non-zero if any fails.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.CachePath
		if flagCacheTestPath != "" {
			path = flagCacheTestPath
		}

		ctx := cmd.Context()
		store, closeFn, err := cache.OpenStore(ctx, path)
		if err != nil {
			return err
		}
		defer closeFn()

		results := cache.RunGuardrails(ctx, store)
		failed := 0
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
				failed++
			}
			rows = append(rows, []string{r.Name, status, r.Duration.Round(time.Microsecond).String(), r.Detail})
		}
		if err := render(cmd.OutOrStdout(), results, []string{"Scenario", "Result", "Duration", "Detail"}, rows); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d cache guardrails failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	cacheTestCmd.Flags().StringVar(&flagCacheTestPath, "cache-path", "", "SQLite cache file (default CACHE_PATH, memory when empty)")
	cacheCmd.AddCommand(cacheTestCmd)
}
