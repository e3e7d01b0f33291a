// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation.

# Connecting

Open applies pool limits and pings with a 5 second timeout:

	conn, err := db.Open(ctx, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
DropSchema removes every table listed in Tables.

# Tables

  - users: account identity (UUID ids)
  - products: shared product catalog with default unit and shelf life
  - pantry_items: quantities a user has on hand, with expiration dates
  - recipes: recipe metadata; ingredients, instructions, tags as JSONB
  - user_recipes: saved / favorite / cooked state per user and recipe
  - shopping_list_items: per-user shopping list
  - usda_foods, usda_nutrients, usda_food_nutrients: FoodData Central import

# Relationships

	users 1──* pantry_items
	users 1──* shopping_list_items
	users *──* recipes (via user_recipes)
	products 1──* pantry_items
	usda_foods *──* usda_nutrients (via usda_food_nutrients)

Invariants (non-negative quantities, rating 1-5, status values, unique
titles and emails) are CHECK and UNIQUE constraints. IsUniqueViolation and
IsForeignKeyViolation inspect lib/pq errors so handlers can answer 409/404.
*/
package db
