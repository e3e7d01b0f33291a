// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the PrepSense API.

# Handler Types

Each handler is a struct holding its database, config and whatever shared
services it needs:

  - UserHandler: Registration and the caller's profile
  - PantryHandler: Pantry CRUD, expiring items and consumption
  - RecipeHandler: Recipe catalog, grouped instructions and nutrition
  - UserRecipeHandler: Saved, favorite and cooked recipes; cooking
  - ShoppingHandler: Shopping list, including items from a recipe
  - RecommendHandler: Pantry-based ranking, Spoonacular and AI ideas
  - NutritionHandler: USDA FoodData Central lookups
  - AdminHandler: Cache statistics and eviction

Handlers are created via constructor functions:

	pantryHandler := handlers.NewPantryHandler(db, cfg, conv, cacheManager)

# Authentication

Everything except registration runs behind middleware.RequireUser, which
puts the caller's ID on the request context. Handlers read it with
middleware.UserID and scope every query by it; rows owned by another
user answer 404.

# Caching

Recommendation lists are cached per user under the "recs:<user>:" prefix.
Every pantry write and every cook drops that prefix. External search
results are cached by the set of pantry ingredient names.

# Cooking

	POST /user-recipes/{recipe_id}/cook → Cook

Cook takes each ingredient out of matching pantry items in one
transaction, soonest expiry first, converting units where needed. Items
that reach zero are deleted. What could not be covered is reported in
the response and does not fail the request.
*/
package handlers
