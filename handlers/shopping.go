// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/recommend"
	"github.com/danielhkuo/prepsense/units"
)

type ShoppingHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	conv *units.Converter
}

func NewShoppingHandler(db *sql.DB, cfg cliparse.Config, conv *units.Converter) *ShoppingHandler {
	if conv == nil {
		conv = units.NewConverter()
	}
	return &ShoppingHandler{db: db, cfg: cfg, conv: conv}
}

const shoppingColumns = `id, user_id, name, quantity, unit, category, checked, recipe_id, created_at, updated_at`

func scanShoppingItem(s scanner) (models.ShoppingListItem, error) {
	var (
		item     models.ShoppingListItem
		recipeID sql.NullString
	)
	err := s.Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Unit, &item.Category,
		&item.Checked, &recipeID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return item, err
	}
	if recipeID.Valid {
		item.RecipeID = &recipeID.String
	}
	return item, nil
}

func queryShopping(ctx context.Context, q querier, query string, args ...any) ([]models.ShoppingListItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ShoppingListItem{}
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// addShoppingItem merges an entry into an unchecked item with the same
// normalized name and a convertible unit, or inserts a new one. It
// reports whether a new row was created.
func (h *ShoppingHandler) addShoppingItem(ctx context.Context, tx *sql.Tx, userID string, in models.ShoppingListItem) (models.ShoppingListItem, bool, error) {
	open, err := queryShopping(ctx, tx, `
		SELECT `+shoppingColumns+`
		FROM shopping_list_items
		WHERE user_id = $1 AND checked = FALSE
		ORDER BY id
		FOR UPDATE
	`, userID)
	if err != nil {
		return in, false, err
	}

	key := units.NormalizeIngredient(in.Name)
	for _, existing := range open {
		if units.NormalizeIngredient(existing.Name) != key {
			continue
		}
		extra, err := h.conv.Convert(in.Quantity, in.Unit, existing.Unit, key)
		if err != nil {
			continue
		}
		merged, err := scanShoppingItem(tx.QueryRowContext(ctx, `
			UPDATE shopping_list_items
			SET quantity = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+shoppingColumns,
			existing.ID, round3(existing.Quantity+extra)))
		return merged, false, err
	}

	item, err := scanShoppingItem(tx.QueryRowContext(ctx, `
		INSERT INTO shopping_list_items (id, user_id, name, quantity, unit, category, recipe_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+shoppingColumns,
		auth.NewSortableID(), userID, in.Name, in.Quantity, in.Unit, in.Category, in.RecipeID))
	return item, err == nil, err
}

// List handles GET /shopping-list
// Unchecked items first, each group in insertion order
func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	items, err := queryShopping(r.Context(), h.db, `
		SELECT `+shoppingColumns+`
		FROM shopping_list_items
		WHERE user_id = $1
		ORDER BY checked ASC, id ASC
	`, userID)
	if err != nil {
		slog.Error("failed to query shopping list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, items)
}

// Add handles POST /shopping-list
// Answers 201 for a new item and 200 when merged into an existing one
func (h *ShoppingHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.ShoppingItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	in := models.ShoppingListItem{
		Name:     strings.TrimSpace(req.Name),
		Quantity: req.Quantity,
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
	}
	if in.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if in.Quantity < 0 || math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	u, err := units.NormalizeUnit(req.Unit)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown unit")
		return
	}
	in.Unit = u.Name
	if in.Category == "" {
		in.Category = h.conv.Category(in.Name)
	}
	if !validCategory(in.Category) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown category")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	item, created, err := h.addShoppingItem(r.Context(), tx, userID, in)
	if err != nil {
		slog.Error("failed to add shopping item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit shopping item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("shopping item added", "user_id", userID, "item_id", item.ID, "merged", !created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, item)
}

// Update handles PATCH /shopping-list/{id}
func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	itemID := r.PathValue("id")

	var req models.UpdateShoppingItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Checked == nil && req.Quantity == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "checked or quantity is required")
		return
	}
	if req.Quantity != nil && (*req.Quantity < 0 || math.IsNaN(*req.Quantity) || math.IsInf(*req.Quantity, 0)) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	item, err := scanShoppingItem(h.db.QueryRowContext(r.Context(), `
		UPDATE shopping_list_items
		SET checked = COALESCE($3, checked),
			quantity = COALESCE($4, quantity),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+shoppingColumns,
		itemID, userID, req.Checked, req.Quantity))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Shopping item not found")
		return
	}
	if err != nil {
		slog.Error("failed to update shopping item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /shopping-list/{id}
func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM shopping_list_items WHERE id = $1 AND user_id = $2
	`, r.PathValue("id"), userID)
	if err != nil {
		slog.Error("failed to delete shopping item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Shopping item not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /shopping-list
// With ?checked=true only checked items are removed
func (h *ShoppingHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	query := `DELETE FROM shopping_list_items WHERE user_id = $1`
	if r.URL.Query().Get("checked") == "true" {
		query += ` AND checked = TRUE`
	}
	res, err := h.db.ExecContext(r.Context(), query, userID)
	if err != nil {
		slog.Error("failed to clear shopping list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	n, _ := res.RowsAffected()

	slog.Info("shopping list cleared", "user_id", userID, "deleted", n)

	middleware.JSONResponse(w, http.StatusOK, models.DeletedResponse{Deleted: n})
}

// FromRecipe handles POST /shopping-list/from-recipe/{recipe_id}
// Adds what the pantry lacks for a recipe: missing ingredients in full,
// insufficient ones by their shortfall.
func (h *ShoppingHandler) FromRecipe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	recipeID := r.PathValue("recipe_id")

	rec, err := loadRecipe(r.Context(), h.db, recipeID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		slog.Error("failed to query recipe", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	pantry, err := loadPantry(r.Context(), h.db, userID)
	if err != nil {
		slog.Error("failed to query pantry", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	match := recommend.Evaluate(pantry, rec, time.Now(), recommend.Options{Converter: h.conv})

	var needs []models.Ingredient
	needs = append(needs, match.Missing...)
	for _, im := range match.Insufficient {
		ing := im.Ingredient
		ing.Quantity = im.Shortfall
		needs = append(needs, ing)
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	added := []models.ShoppingListItem{}
	for _, ing := range needs {
		item, _, err := h.addShoppingItem(r.Context(), tx, userID, models.ShoppingListItem{
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     units.CanonicalUnit(ing.Unit),
			Category: h.conv.Category(ing.Name),
			RecipeID: &recipeID,
		})
		if err != nil {
			slog.Error("failed to add shopping item", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		added = append(added, item)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit shopping items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("shopping list filled from recipe", "user_id", userID, "recipe_id", recipeID, "items", len(added))

	middleware.JSONResponse(w, http.StatusCreated, added)
}
