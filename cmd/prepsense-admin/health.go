// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/db"
)

type healthReport struct {
	Database string           `json:"database"`
	Tables   map[string]int64 `json:"tables"`
	Cache    cacheHealth      `json:"cache"`
}

type cacheHealth struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database and cache store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, cfg, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		report := healthReport{Database: "ok"}
		report.Tables, err = db.CountRows(ctx, conn)
		if err != nil {
			return err
		}
		report.Cache = checkCache(ctx, cfg.CachePath)

		rows := make([][]string, 0, len(db.Tables)+2)
		rows = append(rows, []string{"database", "ok"})
		for _, table := range db.Tables {
			rows = append(rows, []string{table, humanize.Comma(report.Tables[table]) + " rows"})
		}
		cacheStatus := fmt.Sprintf("%s, %s entries", report.Cache.Backend, humanize.Comma(int64(report.Cache.Entries)))
		if report.Cache.Error != "" {
			cacheStatus = report.Cache.Backend + ": " + report.Cache.Error
		}
		rows = append(rows, []string{"cache", cacheStatus})

		if err := render(cmd.OutOrStdout(), report, []string{"Component", "Status"}, rows); err != nil {
			return err
		}
		if report.Cache.Error != "" {
			return fmt.Errorf("cache store unreachable: %s", report.Cache.Error)
		}
		return nil
	},
}

// checkCache opens the configured cache store and counts its entries
func checkCache(ctx context.Context, path string) cacheHealth {
	h := cacheHealth{Backend: "memory", Path: path}
	if path != "" {
		h.Backend = "sqlite"
	}
	store, closeFn, err := cache.OpenStore(ctx, path)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	defer func() {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close cache store", "error", err)
		}
	}()
	h.Entries, err = store.Len(ctx)
	if err != nil {
		h.Error = err.Error()
	}
	return h
}

// renderCounts prints per-table row counts
func renderCounts(w io.Writer, counts map[string]int64) error {
	rows := make([][]string, 0, len(db.Tables))
	for _, table := range db.Tables {
		rows = append(rows, []string{table, humanize.Comma(counts[table])})
	}
	return render(w, counts, []string{"Table", "Rows"}, rows)
}
