// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

// DefaultDemoEmail is used by seed when no email is given
const DefaultDemoEmail = "demo@prepsense.local"

type demoProduct struct {
	name      string
	unit      string
	shelfLife int
}

var demoProducts = []demoProduct{
	{"egg", units.Each, 21},
	{"milk", units.Milliliter, 7},
	{"spinach", units.Gram, 5},
	{"chicken breast", units.Gram, 3},
	{"rice", units.Gram, 365},
	{"tomato", units.Each, 7},
	{"onion", units.Each, 30},
	{"garlic", units.Each, 60},
	{"cheddar cheese", units.Gram, 30},
	{"butter", units.Gram, 60},
}

type demoPantryItem struct {
	product  string
	quantity float64
	expires  int // days from today
}

var demoPantry = []demoPantryItem{
	{"egg", 6, 10},
	{"milk", 500, 1},
	{"spinach", 150, 2},
	{"chicken breast", 400, 1},
	{"rice", 900, 200},
	{"tomato", 3, 4},
	{"onion", 2, 20},
	{"garlic", 5, 40},
	{"cheddar cheese", 120, 14},
}

var demoRecipes = []models.Recipe{
	{
		Title:       "Spinach Omelette",
		Description: "Fluffy eggs folded over wilted spinach and cheddar.",
		Cuisine:     "french",
		Servings:    1,
		PrepMinutes: 5,
		CookMinutes: 5,
		Ingredients: []models.Ingredient{
			{Name: "egg", Quantity: 3, Unit: units.Each},
			{Name: "spinach", Quantity: 40, Unit: units.Gram},
			{Name: "cheddar cheese", Quantity: 30, Unit: units.Gram},
			{Name: "butter", Quantity: 1, Unit: units.Tablespoon},
			{Name: "salt", Unit: units.Each, Note: "to taste"},
		},
		Instructions: []string{
			"Whisk the eggs with a pinch of salt.",
			"Melt the butter in a non-stick pan.",
			"Cook the eggs until just set, add spinach and cheese.",
			"Fold and serve immediately.",
		},
		Tags: []string{"breakfast", "vegetarian", "quick"},
	},
	{
		Title:       "Garlic Chicken and Rice",
		Description: "One-pan chicken with garlic rice and tomatoes.",
		Cuisine:     "american",
		Servings:    2,
		PrepMinutes: 10,
		CookMinutes: 30,
		Ingredients: []models.Ingredient{
			{Name: "chicken breast", Quantity: 300, Unit: units.Gram},
			{Name: "rice", Quantity: 1, Unit: units.Cup},
			{Name: "garlic", Quantity: 3, Unit: units.Each},
			{Name: "tomato", Quantity: 2, Unit: units.Each},
			{Name: "onion", Quantity: 1, Unit: units.Each},
			{Name: "olive oil", Quantity: 2, Unit: units.Tablespoon},
		},
		Instructions: []string{
			"Dice the onion and tomatoes, mince the garlic.",
			"Season the chicken with salt and pepper.",
			"Sear the chicken in olive oil until browned, then set aside.",
			"Saute onion and garlic, add rice and 2 cups water and bring to a boil.",
			"Return the chicken, cover and simmer for 20 minutes.",
			"Top with tomatoes and serve.",
		},
		Tags: []string{"dinner", "one-pan"},
	},
	{
		Title:       "Tomato Rice Soup",
		Description: "A quick soup for tomatoes on their last legs.",
		Cuisine:     "italian",
		Servings:    4,
		PrepMinutes: 10,
		CookMinutes: 25,
		Ingredients: []models.Ingredient{
			{Name: "tomato", Quantity: 6, Unit: units.Each},
			{Name: "onion", Quantity: 1, Unit: units.Each},
			{Name: "rice", Quantity: 0.5, Unit: units.Cup},
			{Name: "vegetable broth", Quantity: 1, Unit: units.Liter},
			{Name: "basil", Quantity: 1, Unit: units.Each, Note: "bunch"},
		},
		Instructions: []string{
			"Chop the tomatoes and onion.",
			"Simmer everything but the basil for 25 minutes.",
			"Blend until smooth, garnish with basil and serve.",
		},
		Tags: []string{"soup", "vegetarian"},
	},
}

// SeedDemo creates (or refreshes) a demo user with products, a pantry
// with several items close to expiry, and a few recipes. It returns the
// user id; the API key is derived from it with auth.GenerateUserKey.
func SeedDemo(ctx context.Context, db *sql.DB, email string) (string, error) {
	if email == "" {
		email = DefaultDemoEmail
	}
	conv := units.NewConverter()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, display_name)
		VALUES ($1, $2, 'Demo User')
		ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id
	`, auth.NewUserID(), email).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert demo user: %w", err)
	}

	productIDs := make(map[string]string, len(demoProducts))
	for _, p := range demoProducts {
		id, err := auth.GenerateID(8)
		if err != nil {
			return "", err
		}
		var productID string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO products (id, name, category, default_unit, shelf_life_days)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				category = EXCLUDED.category,
				default_unit = EXCLUDED.default_unit,
				shelf_life_days = EXCLUDED.shelf_life_days
			RETURNING id
		`, id, p.name, conv.Category(p.name), p.unit, p.shelfLife).Scan(&productID)
		if err != nil {
			return "", fmt.Errorf("failed to upsert product %s: %w", p.name, err)
		}
		productIDs[p.name] = productID
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pantry_items WHERE user_id = $1`, userID); err != nil {
		return "", fmt.Errorf("failed to clear demo pantry: %w", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, item := range demoPantry {
		id, err := auth.GenerateID(16)
		if err != nil {
			return "", err
		}
		unit := units.Each
		for _, p := range demoProducts {
			if p.name == item.product {
				unit = p.unit
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pantry_items (id, user_id, product_id, name, quantity, unit, category, expiration_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, id, userID, productIDs[item.product], item.product, item.quantity, unit,
			conv.Category(item.product), today.AddDate(0, 0, item.expires))
		if err != nil {
			return "", fmt.Errorf("failed to insert pantry item %s: %w", item.product, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit demo seed: %w", err)
	}

	res, err := ImportRecipes(ctx, db, demoRecipes)
	if err != nil {
		return "", err
	}

	slog.Info("demo data seeded",
		"user_id", userID,
		"email", email,
		"pantry_items", len(demoPantry),
		"recipes_inserted", res.Inserted,
	)
	return userID, nil
}
