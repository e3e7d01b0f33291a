// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// LoadResult counts rows written by LoadUSDA
type LoadResult struct {
	Foods         int64 `json:"foods"`
	Nutrients     int64 `json:"nutrients"`
	FoodNutrients int64 `json:"food_nutrients"`
}

const createStaging = `
	CREATE TEMP TABLE usda_foods_stage (LIKE usda_foods INCLUDING DEFAULTS) ON COMMIT DROP;
	CREATE TEMP TABLE usda_nutrients_stage (LIKE usda_nutrients INCLUDING DEFAULTS) ON COMMIT DROP;
	CREATE TEMP TABLE usda_food_nutrients_stage (LIKE usda_food_nutrients INCLUDING DEFAULTS) ON COMMIT DROP;
`

const mergeFoods = `
	INSERT INTO usda_foods (fdc_id, description, data_type, food_category, publication_date)
	SELECT DISTINCT ON (fdc_id) fdc_id, description, data_type, food_category, publication_date
	FROM usda_foods_stage
	ORDER BY fdc_id
	ON CONFLICT (fdc_id) DO UPDATE SET
		description = EXCLUDED.description,
		data_type = EXCLUDED.data_type,
		food_category = EXCLUDED.food_category,
		publication_date = EXCLUDED.publication_date
`

const mergeNutrients = `
	INSERT INTO usda_nutrients (id, name, unit_name, nutrient_nbr)
	SELECT DISTINCT ON (id) id, name, unit_name, nutrient_nbr
	FROM usda_nutrients_stage
	ORDER BY id
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		unit_name = EXCLUDED.unit_name,
		nutrient_nbr = EXCLUDED.nutrient_nbr
`

// Links to foods or nutrients that do not exist are dropped
const mergeFoodNutrients = `
	INSERT INTO usda_food_nutrients (fdc_id, nutrient_id, amount)
	SELECT DISTINCT ON (s.fdc_id, s.nutrient_id) s.fdc_id, s.nutrient_id, s.amount
	FROM usda_food_nutrients_stage s
	JOIN usda_foods f ON f.fdc_id = s.fdc_id
	JOIN usda_nutrients n ON n.id = s.nutrient_id
	ORDER BY s.fdc_id, s.nutrient_id
	ON CONFLICT (fdc_id, nutrient_id) DO UPDATE SET amount = EXCLUDED.amount
`

// LoadUSDA bulk-loads parsed USDA data. Rows are copied into temporary
// staging tables with COPY and merged into the real tables in a single
// transaction, so a failed load leaves the existing data untouched.
func LoadUSDA(ctx context.Context, conn *pgx.Conn, data *USDAData) (LoadResult, error) {
	var res LoadResult
	start := time.Now()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createStaging); err != nil {
		return res, fmt.Errorf("failed to create staging tables: %w", err)
	}

	foods := data.Foods
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"usda_foods_stage"},
		[]string{"fdc_id", "description", "data_type", "food_category", "publication_date"},
		pgx.CopyFromSlice(len(foods), func(i int) ([]any, error) {
			f := foods[i]
			return []any{f.FDCID, f.Description, f.DataType, f.FoodCategory, f.PublicationDate}, nil
		}),
	); err != nil {
		return res, fmt.Errorf("failed to copy foods: %w", err)
	}

	nutrients := data.Nutrients
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"usda_nutrients_stage"},
		[]string{"id", "name", "unit_name", "nutrient_nbr"},
		pgx.CopyFromSlice(len(nutrients), func(i int) ([]any, error) {
			n := nutrients[i]
			return []any{n.ID, n.Name, n.UnitName, n.Number}, nil
		}),
	); err != nil {
		return res, fmt.Errorf("failed to copy nutrients: %w", err)
	}

	links := data.FoodNutrients
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"usda_food_nutrients_stage"},
		[]string{"fdc_id", "nutrient_id", "amount"},
		pgx.CopyFromSlice(len(links), func(i int) ([]any, error) {
			l := links[i]
			return []any{l.FDCID, l.NutrientID, l.Amount}, nil
		}),
	); err != nil {
		return res, fmt.Errorf("failed to copy food nutrients: %w", err)
	}

	tag, err := tx.Exec(ctx, mergeFoods)
	if err != nil {
		return res, fmt.Errorf("failed to merge foods: %w", err)
	}
	res.Foods = tag.RowsAffected()

	tag, err = tx.Exec(ctx, mergeNutrients)
	if err != nil {
		return res, fmt.Errorf("failed to merge nutrients: %w", err)
	}
	res.Nutrients = tag.RowsAffected()

	tag, err = tx.Exec(ctx, mergeFoodNutrients)
	if err != nil {
		return res, fmt.Errorf("failed to merge food nutrients: %w", err)
	}
	res.FoodNutrients = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("failed to commit usda load: %w", err)
	}

	slog.Info("usda data loaded",
		"foods", res.Foods,
		"nutrients", res.Nutrients,
		"food_nutrients", res.FoodNutrients,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
