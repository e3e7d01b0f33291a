// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

// FoodData Central nutrient IDs used for summaries. Amounts are per 100 g.
const (
	NutrientProtein      = 1003
	NutrientFat          = 1004
	NutrientCarbohydrate = 1005
	NutrientEnergy       = 1008 // kcal
)

type NutritionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewNutritionHandler(db *sql.DB, cfg cliparse.Config) *NutritionHandler {
	return &NutritionHandler{db: db, cfg: cfg}
}

// SearchFoods handles GET /nutrition/foods?q=
func (h *NutritionHandler) SearchFoods(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _, err := pagination(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pattern := escapeLike(q)
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT fdc_id, description, data_type, food_category, publication_date
		FROM usda_foods
		WHERE LOWER(description) LIKE '%' || $1::text || '%'
		ORDER BY (LOWER(description) LIKE $1::text || '%') DESC, LENGTH(description) ASC, fdc_id ASC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		slog.Error("failed to search foods", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	foods := []models.USDAFood{}
	for rows.Next() {
		var f models.USDAFood
		if err := rows.Scan(&f.FDCID, &f.Description, &f.DataType, &f.FoodCategory, &f.PublicationDate); err != nil {
			slog.Error("failed to scan food", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		foods = append(foods, f)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate foods", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, foods)
}

// GetFood handles GET /nutrition/foods/{fdc_id}
// Returns the food with every nutrient amount per 100 g
func (h *NutritionHandler) GetFood(w http.ResponseWriter, r *http.Request) {
	fdcID, err := strconv.Atoi(r.PathValue("fdc_id"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "fdc_id must be an integer")
		return
	}

	var f models.USDAFood
	err = h.db.QueryRowContext(r.Context(), `
		SELECT fdc_id, description, data_type, food_category, publication_date
		FROM usda_foods WHERE fdc_id = $1
	`, fdcID).Scan(&f.FDCID, &f.Description, &f.DataType, &f.FoodCategory, &f.PublicationDate)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Food not found")
		return
	}
	if err != nil {
		slog.Error("failed to query food", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT n.id, n.name, n.unit_name, n.nutrient_nbr, fn.amount
		FROM usda_food_nutrients fn
		JOIN usda_nutrients n ON n.id = fn.nutrient_id
		WHERE fn.fdc_id = $1
		ORDER BY n.id
	`, fdcID)
	if err != nil {
		slog.Error("failed to query nutrients", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	f.Nutrients = []models.Nutrient{}
	for rows.Next() {
		var n models.Nutrient
		if err := rows.Scan(&n.ID, &n.Name, &n.UnitName, &n.Number, &n.Amount); err != nil {
			slog.Error("failed to scan nutrient", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		f.Nutrients = append(f.Nutrients, n)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate nutrients", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, f)
}

// matchFood finds the USDA food that best matches an ingredient name:
// descriptions starting with the name first, then the shortest.
func matchFood(ctx context.Context, q querier, name string) (int, string, error) {
	var (
		fdcID int
		desc  string
	)
	err := q.QueryRowContext(ctx, `
		SELECT fdc_id, description
		FROM usda_foods
		WHERE LOWER(description) LIKE '%' || $1::text || '%'
		ORDER BY (LOWER(description) LIKE $1::text || '%') DESC, LENGTH(description) ASC, fdc_id ASC
		LIMIT 1
	`, escapeLike(name)).Scan(&fdcID, &desc)
	return fdcID, desc, err
}

// summaryNutrients returns the per-100 g summary nutrients of a food
func summaryNutrients(ctx context.Context, q querier, fdcID int) (models.NutritionSummary, error) {
	var per100 models.NutritionSummary
	rows, err := q.QueryContext(ctx, `
		SELECT nutrient_id, amount FROM usda_food_nutrients
		WHERE fdc_id = $1 AND nutrient_id IN ($2, $3, $4, $5)
	`, fdcID, NutrientEnergy, NutrientProtein, NutrientFat, NutrientCarbohydrate)
	if err != nil {
		return per100, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int
			amount float64
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return per100, err
		}
		switch id {
		case NutrientEnergy:
			per100.Calories = amount
		case NutrientProtein:
			per100.ProteinG = amount
		case NutrientFat:
			per100.FatG = amount
		case NutrientCarbohydrate:
			per100.CarbohydrateG = amount
		}
	}
	return per100, rows.Err()
}

func scaleSummary(s models.NutritionSummary, factor float64) models.NutritionSummary {
	return models.NutritionSummary{
		Calories:      round2(s.Calories * factor),
		ProteinG:      round2(s.ProteinG * factor),
		FatG:          round2(s.FatG * factor),
		CarbohydrateG: round2(s.CarbohydrateG * factor),
	}
}

func addSummary(a, b models.NutritionSummary) models.NutritionSummary {
	return models.NutritionSummary{
		Calories:      round2(a.Calories + b.Calories),
		ProteinG:      round2(a.ProteinG + b.ProteinG),
		FatG:          round2(a.FatG + b.FatG),
		CarbohydrateG: round2(a.CarbohydrateG + b.CarbohydrateG),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// recipeNutrition matches every ingredient to a USDA food, converts its
// quantity to grams and sums the summary nutrients. Ingredients that
// cannot be matched or weighed are listed with a reason and left out of
// the totals.
func recipeNutrition(ctx context.Context, q querier, conv *units.Converter, rec models.Recipe) (models.RecipeNutrition, error) {
	out := models.RecipeNutrition{
		RecipeID:    rec.ID,
		Servings:    rec.Servings,
		Ingredients: []models.IngredientNutrition{},
	}

	for _, ing := range rec.Ingredients {
		in := models.IngredientNutrition{Ingredient: ing}
		name := units.NormalizeIngredient(ing.Name)

		if ing.Quantity <= 0 {
			in.Reason = "no quantity"
			out.Ingredients = append(out.Ingredients, in)
			continue
		}
		grams, err := conv.ToGrams(ing.Quantity, ing.Unit, name)
		if err != nil {
			in.Reason = "cannot convert " + ing.Unit + " to grams"
			out.Ingredients = append(out.Ingredients, in)
			continue
		}
		grams = round2(grams)
		in.Grams = &grams

		fdcID, desc, err := matchFood(ctx, q, name)
		if err == sql.ErrNoRows {
			in.Reason = "no USDA match"
			out.Ingredients = append(out.Ingredients, in)
			continue
		}
		if err != nil {
			return out, err
		}
		in.FDCID = &fdcID
		in.Matched = desc

		per100, err := summaryNutrients(ctx, q, fdcID)
		if err != nil {
			return out, err
		}
		summary := scaleSummary(per100, grams/100)
		in.Summary = &summary
		out.Total = addSummary(out.Total, summary)
		out.Ingredients = append(out.Ingredients, in)
	}

	servings := rec.Servings
	if servings < 1 {
		servings = 1
	}
	out.PerServing = scaleSummary(out.Total, 1/float64(servings))
	return out, nil
}
