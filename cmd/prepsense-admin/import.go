// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/importer"
)

// importLockName is shared by every import so two never write at once
const importLockName = "prepsense-import.lock"

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load recipes or USDA nutrition data",
}

var flagImportDryRun bool

var importRecipesCmd = &cobra.Command{
	Use:   "recipes <file.csv>",
	Short: "Import recipes from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		recipes, rowErrs := importer.ParseRecipeCSV(f)
		for _, re := range rowErrs {
			slog.Warn("row skipped", "file", args[0], "line", re.Line, "error", re.Err)
		}

		summary := recipeImportSummary{Parsed: len(recipes), RowErrors: len(rowErrs), DryRun: flagImportDryRun}
		if !flagImportDryRun {
			lock, err := acquireImportLock(os.TempDir())
			if err != nil {
				return err
			}
			defer lock.Unlock()

			conn, _, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			summary.ImportResult, err = importer.ImportRecipes(cmd.Context(), conn, recipes)
			if err != nil {
				return err
			}
		}

		return render(cmd.OutOrStdout(), summary,
			[]string{"Parsed", "Row errors", "Inserted", "Updated", "Skipped", "Dry run"},
			[][]string{{
				strconv.Itoa(summary.Parsed),
				strconv.Itoa(summary.RowErrors),
				strconv.Itoa(summary.Inserted),
				strconv.Itoa(summary.Updated),
				strconv.Itoa(summary.Skipped),
				strconv.FormatBool(summary.DryRun),
			}})
	},
}

type recipeImportSummary struct {
	Parsed    int  `json:"parsed"`
	RowErrors int  `json:"row_errors"`
	DryRun    bool `json:"dry_run"`
	importer.ImportResult
}

var importUSDACmd = &cobra.Command{
	Use:   "usda <dir>",
	Short: "Import a USDA FoodData Central CSV export",
	Long: "Load food.csv, nutrient.csv and food_nutrient.csv (and food_category.csv when present) " +
		"from a FoodData Central export directory. Existing rows are updated in place.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errNoDatabaseURL
		}

		lock, err := acquireImportLock(os.TempDir())
		if err != nil {
			return err
		}
		defer lock.Unlock()

		data, err := importer.ReadUSDADir(ctx, args[0])
		if err != nil {
			return err
		}

		conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer conn.Close(ctx)

		res, err := importer.LoadUSDA(ctx, conn, data)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), res,
			[]string{"Foods", "Nutrients", "Food nutrients", "Rows skipped"},
			[][]string{{
				strconv.FormatInt(res.Foods, 10),
				strconv.FormatInt(res.Nutrients, 10),
				strconv.FormatInt(res.FoodNutrients, 10),
				strconv.Itoa(data.Skipped),
			}})
	},
}

var errImportRunning = errors.New("another import is already running")

// acquireImportLock takes the import lock in dir without waiting
func acquireImportLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, importLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errImportRunning
	}
	return lock, nil
}

func init() {
	importRecipesCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "Parse and validate without writing")
	importCmd.AddCommand(importRecipesCmd)
	importCmd.AddCommand(importUSDACmd)
}
