// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/db"
	"github.com/danielhkuo/prepsense/instructions"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

// SourceUser marks recipes created through the API
const SourceUser = "user"

// RecipeHandler serves the shared recipe catalog. Any user may add recipes;
// only the creator may change or remove one through the user routes.
// Imported and seeded recipes have no creator and are changed through the
// admin routes.
type RecipeHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	conv  *units.Converter
	cache *cache.Manager
}

func NewRecipeHandler(db *sql.DB, cfg cliparse.Config, conv *units.Converter, c *cache.Manager) *RecipeHandler {
	if conv == nil {
		conv = units.NewConverter()
	}
	return &RecipeHandler{db: db, cfg: cfg, conv: conv, cache: c}
}

// validateRecipe checks a request and returns the normalized recipe
func validateRecipe(req models.RecipeRequest) (models.Recipe, error) {
	rec := models.Recipe{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Cuisine:      strings.ToLower(strings.TrimSpace(req.Cuisine)),
		Servings:     req.Servings,
		PrepMinutes:  req.PrepMinutes,
		CookMinutes:  req.CookMinutes,
		Ingredients:  []models.Ingredient{},
		Instructions: []string{},
		Tags:         []string{},
		Source:       SourceUser,
	}
	if rec.Title == "" {
		return rec, badRequest("title is required")
	}
	if rec.Servings == 0 {
		rec.Servings = 1
	}
	if rec.Servings < 0 {
		return rec, badRequest("servings must be positive")
	}
	if rec.PrepMinutes < 0 || rec.CookMinutes < 0 {
		return rec, badRequest("minutes must not be negative")
	}
	if len(req.Ingredients) == 0 {
		return rec, badRequest("at least one ingredient is required")
	}

	for i, ing := range req.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Note = strings.TrimSpace(ing.Note)
		if ing.Name == "" {
			return rec, badRequest("ingredient %d: name is required", i+1)
		}
		if ing.Quantity < 0 || math.IsNaN(ing.Quantity) || math.IsInf(ing.Quantity, 0) {
			return rec, badRequest("ingredient %d: quantity must not be negative", i+1)
		}
		if ing.Unit != "" || ing.Quantity > 0 {
			u, err := units.NormalizeUnit(ing.Unit)
			if err != nil {
				return rec, badRequest("ingredient %d: unknown unit %q", i+1, ing.Unit)
			}
			ing.Unit = u.Name
		}
		rec.Ingredients = append(rec.Ingredients, ing)
	}
	for _, step := range req.Instructions {
		if step = strings.TrimSpace(step); step != "" {
			rec.Instructions = append(rec.Instructions, step)
		}
	}
	for _, tag := range req.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	return rec, nil
}

func recipeJSON(rec models.Recipe) (ingredients, steps, tags string, err error) {
	var b []byte
	if b, err = json.Marshal(rec.Ingredients); err != nil {
		return
	}
	ingredients = string(b)
	if b, err = json.Marshal(rec.Instructions); err != nil {
		return
	}
	steps = string(b)
	if b, err = json.Marshal(rec.Tags); err != nil {
		return
	}
	tags = string(b)
	return
}

// Create handles POST /recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.RecipeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	rec, err := validateRecipe(req)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	recipeID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate recipe ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create recipe")
		return
	}
	ingJSON, stepJSON, tagJSON, err := recipeJSON(rec)
	if err != nil {
		slog.Error("failed to encode recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create recipe")
		return
	}

	created, err := scanRecipe(h.db.QueryRowContext(r.Context(), `
		INSERT INTO recipes (id, title, description, cuisine, servings, prep_minutes,
			cook_minutes, ingredients, instructions, tags, source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+recipeColumns,
		recipeID, rec.Title, rec.Description, rec.Cuisine, rec.Servings, rec.PrepMinutes,
		rec.CookMinutes, ingJSON, stepJSON, tagJSON, rec.Source, middleware.UserID(r.Context())))
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "a recipe with this title already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create recipe")
		return
	}

	slog.Info("recipe created", "recipe_id", recipeID, "title", rec.Title)
	invalidateAllRecommendations(r.Context(), h.cache)

	middleware.JSONResponse(w, http.StatusCreated, created)
}

// List handles GET /recipes
// Filters: ?q= (title or description), ?cuisine=, ?tag=; paged with
// ?limit= and ?offset=.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if c := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("cuisine"))); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("cuisine = $%d", len(args)))
	}
	if tag := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tag"))); tag != "" {
		args = append(args, tag)
		where = append(where, fmt.Sprintf("tags @> jsonb_build_array($%d::text)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM recipes`+clause, args...).Scan(&total); err != nil {
		slog.Error("failed to count recipes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	args = append(args, limit, offset)
	rows, err := h.db.QueryContext(r.Context(), `SELECT `+recipeColumns+` FROM recipes`+clause+
		fmt.Sprintf(" ORDER BY title ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		slog.Error("failed to query recipes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	recipes := []models.Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			slog.Error("failed to scan recipe", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate recipes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListResponse[models.Recipe]{
		Items:  recipes,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Get handles GET /recipes/{id}
// Includes the instructions grouped into phases (?max_groups=, 1-3)
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	maxGroups, err := intParam(r, "max_groups", instructions.MaxGroups)
	if err != nil || maxGroups < 1 || maxGroups > instructions.MaxGroups {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_groups must be between 1 and 3")
		return
	}

	rec, err := loadRecipe(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		slog.Error("failed to query recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RecipeDetail{
		Recipe: rec,
		Groups: instructions.ParseToGroups(rec.Instructions, maxGroups),
	})
}

// Update handles PUT /recipes/{id} for the recipe's creator
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, middleware.UserID(r.Context()))
}

// AdminUpdate handles PUT /admin/recipes/{id} for any recipe
func (h *RecipeHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "")
}

// update rewrites a recipe. A non-empty owner restricts the write to
// recipes that owner created.
func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, owner string) {
	recipeID := r.PathValue("id")

	var req models.RecipeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	rec, err := validateRecipe(req)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	ingJSON, stepJSON, tagJSON, err := recipeJSON(rec)
	if err != nil {
		slog.Error("failed to encode recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update recipe")
		return
	}

	updated, err := scanRecipe(h.db.QueryRowContext(r.Context(), `
		UPDATE recipes
		SET title = $2, description = $3, cuisine = $4, servings = $5, prep_minutes = $6,
			cook_minutes = $7, ingredients = $8, instructions = $9, tags = $10, updated_at = NOW()
		WHERE id = $1 AND ($11 = '' OR created_by = $11)
		RETURNING `+recipeColumns,
		recipeID, rec.Title, rec.Description, rec.Cuisine, rec.Servings, rec.PrepMinutes,
		rec.CookMinutes, ingJSON, stepJSON, tagJSON, owner))
	if err == sql.ErrNoRows {
		h.notFoundOrForbidden(w, r, recipeID)
		return
	}
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "a recipe with this title already exists")
		return
	}
	if err != nil {
		slog.Error("failed to update recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update recipe")
		return
	}

	slog.Info("recipe updated", "recipe_id", recipeID)
	invalidateAllRecommendations(r.Context(), h.cache)

	middleware.JSONResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /recipes/{id} for the recipe's creator
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, middleware.UserID(r.Context()))
}

// AdminDelete handles DELETE /admin/recipes/{id} for any recipe
func (h *RecipeHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "")
}

func (h *RecipeHandler) remove(w http.ResponseWriter, r *http.Request, owner string) {
	recipeID := r.PathValue("id")

	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM recipes WHERE id = $1 AND ($2 = '' OR created_by = $2)
	`, recipeID, owner)
	if err != nil {
		slog.Error("failed to delete recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		h.notFoundOrForbidden(w, r, recipeID)
		return
	}

	slog.Info("recipe deleted", "recipe_id", recipeID)
	invalidateAllRecommendations(r.Context(), h.cache)

	w.WriteHeader(http.StatusNoContent)
}

// notFoundOrForbidden answers a write that matched no row: 403 when the
// recipe exists but belongs to someone else, 404 otherwise.
func (h *RecipeHandler) notFoundOrForbidden(w http.ResponseWriter, r *http.Request, recipeID string) {
	var exists bool
	err := h.db.QueryRowContext(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`, recipeID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the recipe's creator can change it")
		return
	}
	middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
}

// Nutrition handles GET /recipes/{id}/nutrition
func (h *RecipeHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	rec, err := loadRecipe(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		slog.Error("failed to query recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	nutrition, err := recipeNutrition(r.Context(), h.db, h.conv, rec)
	if err != nil {
		slog.Error("failed to compute nutrition", "recipe_id", rec.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, nutrition)
}
