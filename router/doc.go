// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the PrepSense API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, router.Deps{Cache: cacheManager})

# Endpoints

Health (public):

	GET /health       - Liveness
	GET /health/ready - Database reachable

Users:

	POST /users    - Register (public, returns api_key)
	GET  /users/me - Caller's profile

Pantry:

	GET    /pantry              - List (?category=, ?expiring_within=)
	POST   /pantry              - Add item
	GET    /pantry/expiring     - Expiring and expired items (?days=)
	GET    /pantry/{id}         - Get item
	PUT    /pantry/{id}         - Replace item
	DELETE /pantry/{id}         - Remove item
	POST   /pantry/{id}/consume - Use some of an item

Recipes:

	GET    /recipes                - Search (?q=, ?cuisine=, ?tag=, ?limit=, ?offset=)
	POST   /recipes                - Create
	GET    /recipes/{id}           - Recipe with grouped instructions
	PUT    /recipes/{id}           - Replace (creator only)
	DELETE /recipes/{id}           - Delete (creator only)
	GET    /recipes/{id}/nutrition - USDA-based nutrition estimate

Saved recipes:

	GET    /user-recipes                  - List (?status=)
	PUT    /user-recipes/{recipe_id}      - Save, favorite or rate
	DELETE /user-recipes/{recipe_id}      - Forget
	POST   /user-recipes/{recipe_id}/cook - Cook from the pantry

Shopping list:

	GET    /shopping-list                          - List
	POST   /shopping-list                          - Add or merge
	DELETE /shopping-list                          - Clear (?checked=true)
	PATCH  /shopping-list/{id}                     - Check off or change quantity
	DELETE /shopping-list/{id}                     - Remove
	POST   /shopping-list/from-recipe/{recipe_id}  - Add what a recipe lacks

Recommendations:

	GET  /recommendations               - Ranked stored recipes
	GET  /recommendations/external      - Spoonacular search
	GET  /recommendations/external/{id} - Spoonacular recipe with grouped instructions
	POST /recommendations/ai            - OpenAI recipe ideas

Nutrition:

	GET /nutrition/foods?q=       - Search USDA foods
	GET /nutrition/foods/{fdc_id} - Food with nutrients

Admin (requires X-Admin-Key):

	GET    /admin/cache/stats   - Cache counters and alerts
	POST   /admin/cache/evict   - Drop a key prefix or expired entries
	PUT    /admin/recipes/{id}  - Replace any recipe
	DELETE /admin/recipes/{id}  - Delete any recipe

Every other route requires X-User-ID and X-User-Key.
*/
package router
