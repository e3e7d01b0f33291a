// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// Tables lists every application table in dependency order (parents first).
var Tables = []string{
	"users",
	"products",
	"pantry_items",
	"recipes",
	"user_recipes",
	"shopping_list_items",
	"usda_foods",
	"usda_nutrients",
	"usda_food_nutrients",
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DropSchema removes all application tables. Used by migrate --reset and tests.
func DropSchema(db *sql.DB) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + Tables[i] + " CASCADE"); err != nil {
			return fmt.Errorf("failed to drop %s: %w", Tables[i], err)
		}
	}
	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

-- Product catalog
CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    category TEXT NOT NULL DEFAULT 'other',
    default_unit TEXT NOT NULL DEFAULT 'each',
    shelf_life_days INTEGER CHECK (shelf_life_days IS NULL OR shelf_life_days > 0),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

-- Pantry items
CREATE TABLE IF NOT EXISTS pantry_items (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    product_id TEXT REFERENCES products(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
    unit TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'other',
    expiration_date DATE,
    price_paid DOUBLE PRECISION CHECK (price_paid IS NULL OR price_paid >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pantry_items_user_id ON pantry_items(user_id);
CREATE INDEX IF NOT EXISTS idx_pantry_items_expiration ON pantry_items(user_id, expiration_date);

-- Recipes
CREATE TABLE IF NOT EXISTS recipes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    cuisine TEXT NOT NULL DEFAULT '',
    servings INTEGER NOT NULL DEFAULT 1 CHECK (servings > 0),
    prep_minutes INTEGER NOT NULL DEFAULT 0 CHECK (prep_minutes >= 0),
    cook_minutes INTEGER NOT NULL DEFAULT 0 CHECK (cook_minutes >= 0),
    ingredients JSONB NOT NULL DEFAULT '[]',
    instructions JSONB NOT NULL DEFAULT '[]',
    tags JSONB NOT NULL DEFAULT '[]',
    source TEXT NOT NULL DEFAULT 'user',
    source_id TEXT,
    created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

-- Databases created before recipes had owners
ALTER TABLE recipes ADD COLUMN IF NOT EXISTS created_by TEXT REFERENCES users(id) ON DELETE SET NULL;

CREATE INDEX IF NOT EXISTS idx_recipes_cuisine ON recipes(cuisine);

-- Saved, favorited and cooked recipes per user
CREATE TABLE IF NOT EXISTS user_recipes (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    recipe_id TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'saved' CHECK (status IN ('saved', 'favorite', 'cooked')),
    rating INTEGER CHECK (rating IS NULL OR (rating >= 1 AND rating <= 5)),
    notes TEXT,
    times_cooked INTEGER NOT NULL DEFAULT 0 CHECK (times_cooked >= 0),
    last_cooked_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, recipe_id)
);

CREATE INDEX IF NOT EXISTS idx_user_recipes_status ON user_recipes(user_id, status);

-- Shopping list
CREATE TABLE IF NOT EXISTS shopping_list_items (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    quantity DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    unit TEXT NOT NULL DEFAULT 'each',
    category TEXT NOT NULL DEFAULT 'other',
    checked BOOLEAN NOT NULL DEFAULT FALSE,
    recipe_id TEXT REFERENCES recipes(id) ON DELETE SET NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_shopping_list_items_user_id ON shopping_list_items(user_id);

-- USDA FoodData Central
CREATE TABLE IF NOT EXISTS usda_foods (
    fdc_id INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    data_type TEXT NOT NULL DEFAULT '',
    food_category TEXT NOT NULL DEFAULT '',
    publication_date TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_usda_foods_description ON usda_foods(LOWER(description));

CREATE TABLE IF NOT EXISTS usda_nutrients (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    unit_name TEXT NOT NULL,
    nutrient_nbr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS usda_food_nutrients (
    fdc_id INTEGER NOT NULL REFERENCES usda_foods(fdc_id) ON DELETE CASCADE,
    nutrient_id INTEGER NOT NULL REFERENCES usda_nutrients(id) ON DELETE CASCADE,
    amount DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (fdc_id, nutrient_id)
);
`
