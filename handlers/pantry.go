// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

type PantryHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	conv  *units.Converter
	cache *cache.Manager
}

func NewPantryHandler(db *sql.DB, cfg cliparse.Config, conv *units.Converter, c *cache.Manager) *PantryHandler {
	if conv == nil {
		conv = units.NewConverter()
	}
	return &PantryHandler{db: db, cfg: cfg, conv: conv, cache: c}
}

// pantryWrite is a validated, normalized PantryItemRequest
type pantryWrite struct {
	name      string
	quantity  float64
	unit      string
	category  string
	productID *string
	expires   *time.Time
	price     *float64
}

// errBadRequest marks validation failures that map to 400
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, args...)}
}

// validate normalizes a request. Missing unit, category and expiry are
// filled from the referenced product, then from the converter's tables.
func (h *PantryHandler) validate(ctx context.Context, req models.PantryItemRequest) (pantryWrite, error) {
	pw := pantryWrite{
		name:      strings.TrimSpace(req.Name),
		quantity:  req.Quantity,
		category:  strings.ToLower(strings.TrimSpace(req.Category)),
		productID: req.ProductID,
		price:     req.PricePaid,
	}
	unit := strings.TrimSpace(req.Unit)
	shelfLife := req.ShelfLifeDays

	if pw.productID != nil {
		var (
			name, category, defaultUnit string
			productShelf                sql.NullInt64
		)
		err := h.db.QueryRowContext(ctx, `
			SELECT name, category, default_unit, shelf_life_days FROM products WHERE id = $1
		`, *pw.productID).Scan(&name, &category, &defaultUnit, &productShelf)
		if err == sql.ErrNoRows {
			return pw, badRequest("product not found")
		}
		if err != nil {
			return pw, err
		}
		if pw.name == "" {
			pw.name = name
		}
		if pw.category == "" {
			pw.category = category
		}
		if unit == "" {
			unit = defaultUnit
		}
		if shelfLife == nil && productShelf.Valid {
			days := int(productShelf.Int64)
			shelfLife = &days
		}
	}

	if pw.name == "" {
		return pw, badRequest("name is required")
	}
	if pw.quantity < 0 || math.IsNaN(pw.quantity) || math.IsInf(pw.quantity, 0) {
		return pw, badRequest("quantity must be a non-negative number")
	}
	if unit == "" {
		unit = h.conv.SuggestUnit(pw.name)
	}
	u, err := units.NormalizeUnit(unit)
	if err != nil {
		return pw, badRequest("unknown unit %q", unit)
	}
	pw.unit = u.Name

	if pw.category == "" {
		pw.category = h.conv.Category(pw.name)
	}
	if !validCategory(pw.category) {
		return pw, badRequest("unknown category %q", pw.category)
	}
	if pw.price != nil && *pw.price < 0 {
		return pw, badRequest("price_paid must not be negative")
	}

	if pw.expires, err = parseDate(req.ExpirationDate); err != nil {
		return pw, badRequest("%s", err.Error())
	}
	if pw.expires == nil && shelfLife != nil {
		if *shelfLife <= 0 {
			return pw, badRequest("shelf_life_days must be positive")
		}
		d := today().AddDate(0, 0, *shelfLife)
		pw.expires = &d
	}
	return pw, nil
}

// writeValidationError answers 400 for validation errors and 500 otherwise
func writeValidationError(w http.ResponseWriter, err error) {
	var bad errBadRequest
	if errors.As(err, &bad) {
		middleware.ErrorResponse(w, http.StatusBadRequest, bad.msg)
		return
	}
	slog.Error("failed to validate request", "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
}

// List handles GET /pantry
// Optional filters: ?category= and ?expiring_within= (days)
func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	query := `SELECT ` + pantryColumns + ` FROM pantry_items WHERE user_id = $1`
	args := []any{userID}

	if c := strings.ToLower(r.URL.Query().Get("category")); c != "" {
		if !validCategory(c) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "unknown category")
			return
		}
		args = append(args, c)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if r.URL.Query().Has("expiring_within") {
		days, err := intParam(r, "expiring_within", 0)
		if err != nil || days < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "expiring_within must be a non-negative integer")
			return
		}
		args = append(args, today().AddDate(0, 0, days))
		query += fmt.Sprintf(" AND expiration_date <= $%d", len(args))
	}
	query += ` ORDER BY expiration_date ASC NULLS LAST, name ASC`

	items, err := queryPantry(r.Context(), h.db, query, args...)
	if err != nil {
		slog.Error("failed to query pantry", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, items)
}

// Expiring handles GET /pantry/expiring
// Returns items expiring within ?days= (default from config), including
// items that are already past their date.
func (h *PantryHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	def := h.cfg.ExpiringWithinDays
	if def <= 0 {
		def = cliparse.DefaultExpiringWithinDays
	}
	days, err := intParam(r, "days", def)
	if err != nil || days < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "days must be a non-negative integer")
		return
	}

	items, err := queryPantry(r.Context(), h.db, `
		SELECT `+pantryColumns+`
		FROM pantry_items
		WHERE user_id = $1 AND expiration_date IS NOT NULL AND expiration_date <= $2
		ORDER BY expiration_date ASC, name ASC
	`, userID, today().AddDate(0, 0, days))
	if err != nil {
		slog.Error("failed to query expiring items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, items)
}

// Create handles POST /pantry
func (h *PantryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.PantryItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	pw, err := h.validate(r.Context(), req)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	itemID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate pantry item ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add pantry item")
		return
	}

	item, err := scanPantryItem(h.db.QueryRowContext(r.Context(), `
		INSERT INTO pantry_items (id, user_id, product_id, name, quantity, unit, category, expiration_date, price_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+pantryColumns,
		itemID, userID, pw.productID, pw.name, pw.quantity, pw.unit, pw.category, pw.expires, pw.price))
	if err != nil {
		slog.Error("failed to insert pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add pantry item")
		return
	}

	invalidateRecommendations(r.Context(), h.cache, userID)
	slog.Info("pantry item added", "user_id", userID, "item_id", itemID, "name", pw.name)

	middleware.JSONResponse(w, http.StatusCreated, item)
}

// Get handles GET /pantry/{id}
func (h *PantryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	itemID := r.PathValue("id")

	item, err := scanPantryItem(h.db.QueryRowContext(r.Context(), `
		SELECT `+pantryColumns+` FROM pantry_items WHERE id = $1 AND user_id = $2
	`, itemID, userID))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Pantry item not found")
		return
	}
	if err != nil {
		slog.Error("failed to query pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, item)
}

// Update handles PUT /pantry/{id}
// Replaces every field of the item
func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	itemID := r.PathValue("id")

	var req models.PantryItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	pw, err := h.validate(r.Context(), req)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	item, err := scanPantryItem(h.db.QueryRowContext(r.Context(), `
		UPDATE pantry_items
		SET product_id = $3, name = $4, quantity = $5, unit = $6, category = $7,
			expiration_date = $8, price_paid = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+pantryColumns,
		itemID, userID, pw.productID, pw.name, pw.quantity, pw.unit, pw.category, pw.expires, pw.price))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Pantry item not found")
		return
	}
	if err != nil {
		slog.Error("failed to update pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update pantry item")
		return
	}

	invalidateRecommendations(r.Context(), h.cache, userID)
	slog.Info("pantry item updated", "user_id", userID, "item_id", itemID)

	middleware.JSONResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /pantry/{id}
func (h *PantryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	itemID := r.PathValue("id")

	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM pantry_items WHERE id = $1 AND user_id = $2
	`, itemID, userID)
	if err != nil {
		slog.Error("failed to delete pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Pantry item not found")
		return
	}

	invalidateRecommendations(r.Context(), h.cache, userID)
	slog.Info("pantry item deleted", "user_id", userID, "item_id", itemID)

	w.WriteHeader(http.StatusNoContent)
}

// Consume handles POST /pantry/{id}/consume
// The consumed amount is converted to the item's unit; an item that
// reaches zero is deleted.
func (h *PantryHandler) Consume(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	itemID := r.PathValue("id")

	var req models.ConsumeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Quantity <= 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var (
		name, unit string
		quantity   float64
	)
	err = tx.QueryRowContext(r.Context(), `
		SELECT name, quantity, unit FROM pantry_items
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, itemID, userID).Scan(&name, &quantity, &unit)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Pantry item not found")
		return
	}
	if err != nil {
		slog.Error("failed to query pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	from := req.Unit
	if strings.TrimSpace(from) == "" {
		from = unit
	}
	used, err := h.conv.Convert(req.Quantity, from, unit, name)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("cannot convert %s to %s for %s", from, unit, name))
		return
	}
	if used > quantity*(1+1e-9) {
		middleware.ErrorResponse(w, http.StatusConflict, fmt.Sprintf("only %g %s of %s available", quantity, unit, name))
		return
	}

	resp := models.ConsumeResponse{Remaining: math.Max(quantity-used, 0), Unit: unit}
	if nearlyZero(resp.Remaining) {
		resp.Remaining = 0
		resp.Deleted = true
		_, err = tx.ExecContext(r.Context(), `DELETE FROM pantry_items WHERE id = $1`, itemID)
	} else {
		_, err = tx.ExecContext(r.Context(), `
			UPDATE pantry_items SET quantity = $2, updated_at = NOW() WHERE id = $1
		`, itemID, resp.Remaining)
	}
	if err != nil {
		slog.Error("failed to consume pantry item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit consume", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	invalidateRecommendations(r.Context(), h.cache, userID)
	slog.Info("pantry item consumed",
		"user_id", userID,
		"item_id", itemID,
		"used", used,
		"unit", unit,
		"deleted", resp.Deleted,
	)

	middleware.JSONResponse(w, http.StatusOK, resp)
}
