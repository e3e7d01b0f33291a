// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/db"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/recommend"
	"github.com/danielhkuo/prepsense/units"
)

type UserRecipeHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	conv  *units.Converter
	cache *cache.Manager
}

func NewUserRecipeHandler(db *sql.DB, cfg cliparse.Config, conv *units.Converter, c *cache.Manager) *UserRecipeHandler {
	if conv == nil {
		conv = units.NewConverter()
	}
	return &UserRecipeHandler{db: db, cfg: cfg, conv: conv, cache: c}
}

func isValidStatus(status string) bool {
	switch status {
	case models.StatusSaved, models.StatusFavorite, models.StatusCooked:
		return true
	}
	return false
}

const userRecipeColumns = `ur.user_id, ur.recipe_id, r.title, ur.status, ur.rating, ur.notes,
	ur.times_cooked, ur.last_cooked_at, ur.created_at, ur.updated_at`

func scanUserRecipe(s scanner) (models.UserRecipe, error) {
	var (
		ur         models.UserRecipe
		rating     sql.NullInt64
		notes      sql.NullString
		lastCooked sql.NullTime
	)
	err := s.Scan(&ur.UserID, &ur.RecipeID, &ur.Title, &ur.Status, &rating, &notes,
		&ur.TimesCooked, &lastCooked, &ur.CreatedAt, &ur.UpdatedAt)
	if err != nil {
		return ur, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		ur.Rating = &v
	}
	if notes.Valid {
		ur.Notes = &notes.String
	}
	if lastCooked.Valid {
		ur.LastCookedAt = &lastCooked.Time
	}
	return ur, nil
}

// Upsert handles PUT /user-recipes/{recipe_id}
// Saves, favorites or rates a recipe for the caller
func (h *UserRecipeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	recipeID := r.PathValue("recipe_id")

	var req models.UserRecipeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Status == "" {
		req.Status = models.StatusSaved
	}
	if !isValidStatus(req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of: saved, favorite, cooked")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	_, err := h.db.ExecContext(r.Context(), `
		INSERT INTO user_recipes (user_id, recipe_id, status, rating, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, recipe_id) DO UPDATE SET
			status = EXCLUDED.status,
			rating = COALESCE(EXCLUDED.rating, user_recipes.rating),
			notes = COALESCE(EXCLUDED.notes, user_recipes.notes),
			updated_at = NOW()
	`, userID, recipeID, req.Status, req.Rating, req.Notes)
	if db.IsForeignKeyViolation(err) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		slog.Error("failed to upsert user recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	ur, err := scanUserRecipe(h.db.QueryRowContext(r.Context(), `
		SELECT `+userRecipeColumns+`
		FROM user_recipes ur JOIN recipes r ON r.id = ur.recipe_id
		WHERE ur.user_id = $1 AND ur.recipe_id = $2
	`, userID, recipeID))
	if err != nil {
		slog.Error("failed to query user recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("user recipe saved", "user_id", userID, "recipe_id", recipeID, "status", req.Status)

	middleware.JSONResponse(w, http.StatusOK, ur)
}

// List handles GET /user-recipes (?status=)
func (h *UserRecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	query := `SELECT ` + userRecipeColumns + `
		FROM user_recipes ur JOIN recipes r ON r.id = ur.recipe_id
		WHERE ur.user_id = $1`
	args := []any{userID}
	if status := r.URL.Query().Get("status"); status != "" {
		if !isValidStatus(status) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of: saved, favorite, cooked")
			return
		}
		args = append(args, status)
		query += ` AND ur.status = $2`
	}
	query += ` ORDER BY ur.updated_at DESC, r.title ASC`

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		slog.Error("failed to query user recipes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	list := []models.UserRecipe{}
	for rows.Next() {
		ur, err := scanUserRecipe(rows)
		if err != nil {
			slog.Error("failed to scan user recipe", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		list = append(list, ur)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate user recipes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}

// Delete handles DELETE /user-recipes/{recipe_id}
func (h *UserRecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	recipeID := r.PathValue("recipe_id")

	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM user_recipes WHERE user_id = $1 AND recipe_id = $2
	`, userID, recipeID)
	if err != nil {
		slog.Error("failed to delete user recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Saved recipe not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Cook handles POST /user-recipes/{recipe_id}/cook
// In one transaction: takes each ingredient out of matching pantry items
// (soonest expiry first), deletes items that reach zero, and records the
// recipe as cooked. Ingredients that cannot be covered are reported as
// missing; the cook still succeeds.
func (h *UserRecipeHandler) Cook(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	recipeID := r.PathValue("recipe_id")

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	rec, err := loadRecipe(r.Context(), tx, recipeID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		slog.Error("failed to query recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	pantry, err := queryPantry(r.Context(), tx, `
		SELECT `+pantryColumns+`
		FROM pantry_items
		WHERE user_id = $1 AND quantity > 0 AND (expiration_date IS NULL OR expiration_date >= $2)
		ORDER BY expiration_date ASC NULLS LAST, id ASC
		FOR UPDATE
	`, userID, today())
	if err != nil {
		slog.Error("failed to lock pantry", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	plan := planCook(rec, pantry, h.conv)

	for _, c := range plan.Consumed {
		if nearlyZero(c.Remaining) {
			_, err = tx.ExecContext(r.Context(), `DELETE FROM pantry_items WHERE id = $1`, c.PantryItemID)
		} else {
			_, err = tx.ExecContext(r.Context(), `
				UPDATE pantry_items SET quantity = $2, updated_at = NOW() WHERE id = $1
			`, c.PantryItemID, c.Remaining)
		}
		if err != nil {
			slog.Error("failed to update pantry item", "item_id", c.PantryItemID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	var timesCooked int
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO user_recipes (user_id, recipe_id, status, times_cooked, last_cooked_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (user_id, recipe_id) DO UPDATE SET
			status = CASE WHEN user_recipes.status = 'favorite' THEN 'favorite' ELSE EXCLUDED.status END,
			times_cooked = user_recipes.times_cooked + 1,
			last_cooked_at = NOW(),
			updated_at = NOW()
		RETURNING times_cooked
	`, userID, recipeID, models.StatusCooked).Scan(&timesCooked)
	if err != nil {
		slog.Error("failed to record cook", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit cook", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	invalidateRecommendations(r.Context(), h.cache, userID)
	slog.Info("recipe cooked",
		"user_id", userID,
		"recipe_id", recipeID,
		"consumed", len(plan.Consumed),
		"missing", len(plan.Missing),
	)

	plan.RecipeID = recipeID
	plan.TimesCooked = timesCooked
	middleware.JSONResponse(w, http.StatusOK, plan)
}

// planCook works out how much to take from each pantry item. pantry must
// be ordered by preference (soonest expiry first). Staples that are not
// stocked are skipped silently. Stock whose unit does not convert to the
// recipe's is left untouched and only warned about. Remaining is the exact
// new quantity; Used is rounded for display.
func planCook(rec models.Recipe, pantry []models.PantryItem, conv *units.Converter) models.CookResponse {
	resp := models.CookResponse{
		Consumed: []models.ConsumedItem{},
		Missing:  []string{},
	}
	remaining := make(map[string]float64, len(pantry))
	for _, p := range pantry {
		remaining[p.ID] = p.Quantity
	}
	used := map[string]*models.ConsumedItem{}
	var order []string

	for _, ing := range rec.Ingredients {
		if ing.Quantity <= 0 {
			continue
		}
		name := units.NormalizeIngredient(ing.Name)
		need := ing.Quantity
		matched := false
		unconvertible := false

		for _, p := range pantry {
			if need <= 0 {
				break
			}
			if !recommend.NameMatches(name, p.Name) || nearlyZero(remaining[p.ID]) {
				continue
			}
			matched = true

			// Amount available in the ingredient's unit
			avail, err := conv.Convert(remaining[p.ID], p.Unit, ing.Unit, name)
			if err != nil {
				resp.Warnings = append(resp.Warnings,
					fmt.Sprintf("%s: cannot convert %s to %s", ing.Name, p.Unit, ing.Unit))
				unconvertible = true
				continue
			}
			take := math.Min(need, avail)
			takeInItemUnit, err := conv.Convert(take, ing.Unit, p.Unit, name)
			if err != nil {
				unconvertible = true
				continue
			}
			need -= take
			remaining[p.ID] = math.Max(remaining[p.ID]-takeInItemUnit, 0)
			if nearlyZero(remaining[p.ID]) {
				remaining[p.ID] = 0
			}

			c, ok := used[p.ID]
			if !ok {
				c = &models.ConsumedItem{PantryItemID: p.ID, Name: p.Name, Unit: p.Unit}
				used[p.ID] = c
				order = append(order, p.ID)
			}
			c.Used = round3(c.Used + takeInItemUnit)
			c.Remaining = remaining[p.ID]
		}

		switch {
		case need <= ing.Quantity*1e-9:
		case recommend.IsStaple(name) && !matched:
		case unconvertible:
			// On hand in a unit we cannot relate; left untouched, warned above
		default:
			resp.Missing = append(resp.Missing, fmt.Sprintf("%g %s %s", round3(need), ing.Unit, ing.Name))
		}
	}

	for _, id := range order {
		resp.Consumed = append(resp.Consumed, *used[id])
	}
	sort.SliceStable(resp.Consumed, func(i, j int) bool {
		return strings.ToLower(resp.Consumed[i].Name) < strings.ToLower(resp.Consumed[j].Name)
	})
	return resp
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
