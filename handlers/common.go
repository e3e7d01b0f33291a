// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/models"
)

// Pagination limits for list endpoints
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

const dateLayout = "2006-01-02"

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// recommendationsPrefix scopes every cached recommendation list of a user
func recommendationsPrefix(userID string) string {
	return "recs:" + userID + ":"
}

// invalidateRecommendations drops cached recommendations after a pantry
// change. Cache failures are logged and never fail the request.
func invalidateRecommendations(ctx context.Context, c *cache.Manager, userID string) {
	if c == nil {
		return
	}
	if _, err := c.InvalidatePrefix(ctx, recommendationsPrefix(userID)); err != nil {
		slog.Warn("failed to invalidate recommendations", "user_id", userID, "error", err)
	}
}

// invalidateAllRecommendations drops every user's cached recommendations
// after the recipe catalog changes.
func invalidateAllRecommendations(ctx context.Context, c *cache.Manager) {
	if c == nil {
		return
	}
	if _, err := c.InvalidatePrefix(ctx, "recs:"); err != nil {
		slog.Warn("failed to invalidate recommendations", "error", err)
	}
}

// Pantry rows

const pantryColumns = `id, user_id, product_id, name, quantity, unit, category,
	expiration_date, price_paid, created_at, updated_at`

func scanPantryItem(s scanner) (models.PantryItem, error) {
	var (
		item      models.PantryItem
		productID sql.NullString
		expires   sql.NullTime
		price     sql.NullFloat64
	)
	err := s.Scan(&item.ID, &item.UserID, &productID, &item.Name, &item.Quantity, &item.Unit,
		&item.Category, &expires, &price, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return item, err
	}
	if productID.Valid {
		item.ProductID = &productID.String
	}
	if expires.Valid {
		d := expires.Time
		item.ExpirationDate = &d
	}
	if price.Valid {
		item.PricePaid = &price.Float64
	}
	return item, nil
}

func queryPantry(ctx context.Context, q querier, query string, args ...any) ([]models.PantryItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PantryItem{}
	for rows.Next() {
		item, err := scanPantryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// loadPantry returns every pantry item of a user, soonest expiry first
func loadPantry(ctx context.Context, q querier, userID string) ([]models.PantryItem, error) {
	return queryPantry(ctx, q, `
		SELECT `+pantryColumns+`
		FROM pantry_items
		WHERE user_id = $1
		ORDER BY expiration_date ASC NULLS LAST, name ASC
	`, userID)
}

// Recipe rows

const recipeColumns = `id, title, description, cuisine, servings, prep_minutes,
	cook_minutes, ingredients, instructions, tags, source, source_id, created_at, updated_at`

func scanRecipe(s scanner) (models.Recipe, error) {
	var (
		r                 models.Recipe
		ingJSON, stepJSON []byte
		tagJSON           []byte
		sourceID          sql.NullString
	)
	err := s.Scan(&r.ID, &r.Title, &r.Description, &r.Cuisine, &r.Servings, &r.PrepMinutes,
		&r.CookMinutes, &ingJSON, &stepJSON, &tagJSON, &r.Source, &sourceID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if sourceID.Valid {
		r.SourceID = &sourceID.String
	}
	if err := json.Unmarshal(ingJSON, &r.Ingredients); err != nil {
		return r, fmt.Errorf("failed to decode ingredients of recipe %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(stepJSON, &r.Instructions); err != nil {
		return r, fmt.Errorf("failed to decode instructions of recipe %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(tagJSON, &r.Tags); err != nil {
		return r, fmt.Errorf("failed to decode tags of recipe %s: %w", r.ID, err)
	}
	if r.Ingredients == nil {
		r.Ingredients = []models.Ingredient{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r, nil
}

func loadRecipe(ctx context.Context, q querier, id string) (models.Recipe, error) {
	return scanRecipe(q.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id))
}

func loadAllRecipes(ctx context.Context, q querier) ([]models.Recipe, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := []models.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// Request helpers

// pagination reads ?limit= and ?offset=
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultPageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// intParam reads an optional integer query parameter
func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// parseDate parses an optional YYYY-MM-DD date
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, errors.New("expiration_date must be YYYY-MM-DD")
	}
	return &d, nil
}

// today is the current UTC date at midnight
func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validCategory(c string) bool {
	return models.ValidCategory(c)
}

// nearlyZero absorbs float noise left over by unit conversions
func nearlyZero(v float64) bool {
	return v < 1e-9
}
