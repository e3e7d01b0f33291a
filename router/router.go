// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/clients"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/handlers"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/units"
)

// Deps are the shared services behind the handlers. Any field may be nil:
// a nil Converter gets the built-in tables, a nil Cache disables caching
// and nil clients make their endpoints answer 503.
type Deps struct {
	Cache       *cache.Manager
	Converter   *units.Converter
	Spoonacular *clients.SpoonacularClient
	OpenAI      *clients.OpenAIClient
}

func NewRouter(db *sql.DB, cfg cliparse.Config, deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	conv := deps.Converter
	if conv == nil {
		conv = units.NewConverter()
	}

	// Typed nil pointers must not reach the handler interfaces
	var searcher handlers.RecipeSearcher
	if deps.Spoonacular != nil && deps.Spoonacular.Configured() {
		searcher = deps.Spoonacular
	}
	var ideas handlers.IdeaSuggester
	if deps.OpenAI != nil {
		ideas = deps.OpenAI
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg)
	pantryHandler := handlers.NewPantryHandler(db, cfg, conv, deps.Cache)
	recipeHandler := handlers.NewRecipeHandler(db, cfg, conv, deps.Cache)
	userRecipeHandler := handlers.NewUserRecipeHandler(db, cfg, conv, deps.Cache)
	shoppingHandler := handlers.NewShoppingHandler(db, cfg, conv)
	recommendHandler := handlers.NewRecommendHandler(db, cfg, conv, deps.Cache, searcher, ideas)
	nutritionHandler := handlers.NewNutritionHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(cfg, deps.Cache)

	user := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(cfg.UserKeySalt, h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKey, h))
	}

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Users
	mux.HandleFunc("POST /users", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("GET /users/me", user(userHandler.GetMe))

	// Pantry
	mux.HandleFunc("GET /pantry", user(pantryHandler.List))
	mux.HandleFunc("POST /pantry", user(pantryHandler.Create))
	mux.HandleFunc("GET /pantry/expiring", user(pantryHandler.Expiring))
	mux.HandleFunc("GET /pantry/{id}", user(pantryHandler.Get))
	mux.HandleFunc("PUT /pantry/{id}", user(pantryHandler.Update))
	mux.HandleFunc("DELETE /pantry/{id}", user(pantryHandler.Delete))
	mux.HandleFunc("POST /pantry/{id}/consume", user(pantryHandler.Consume))

	// Recipes
	mux.HandleFunc("GET /recipes", user(recipeHandler.List))
	mux.HandleFunc("POST /recipes", user(recipeHandler.Create))
	mux.HandleFunc("GET /recipes/{id}", user(recipeHandler.Get))
	mux.HandleFunc("PUT /recipes/{id}", user(recipeHandler.Update))
	mux.HandleFunc("DELETE /recipes/{id}", user(recipeHandler.Delete))
	mux.HandleFunc("GET /recipes/{id}/nutrition", user(recipeHandler.Nutrition))

	// Saved recipes and cooking
	mux.HandleFunc("GET /user-recipes", user(userRecipeHandler.List))
	mux.HandleFunc("PUT /user-recipes/{recipe_id}", user(userRecipeHandler.Upsert))
	mux.HandleFunc("DELETE /user-recipes/{recipe_id}", user(userRecipeHandler.Delete))
	mux.HandleFunc("POST /user-recipes/{recipe_id}/cook", user(userRecipeHandler.Cook))

	// Shopping list
	mux.HandleFunc("GET /shopping-list", user(shoppingHandler.List))
	mux.HandleFunc("POST /shopping-list", user(shoppingHandler.Add))
	mux.HandleFunc("DELETE /shopping-list", user(shoppingHandler.Clear))
	mux.HandleFunc("PATCH /shopping-list/{id}", user(shoppingHandler.Update))
	mux.HandleFunc("DELETE /shopping-list/{id}", user(shoppingHandler.Delete))
	mux.HandleFunc("POST /shopping-list/from-recipe/{recipe_id}", user(shoppingHandler.FromRecipe))

	// Recommendations
	mux.HandleFunc("GET /recommendations", user(recommendHandler.Recommendations))
	mux.HandleFunc("GET /recommendations/external", user(recommendHandler.External))
	mux.HandleFunc("GET /recommendations/external/{id}", user(recommendHandler.ExternalDetail))
	mux.HandleFunc("POST /recommendations/ai", user(recommendHandler.AISuggest))

	// Nutrition
	mux.HandleFunc("GET /nutrition/foods", user(nutritionHandler.SearchFoods))
	mux.HandleFunc("GET /nutrition/foods/{fdc_id}", user(nutritionHandler.GetFood))

	// Admin
	mux.HandleFunc("GET /admin/cache/stats", admin(adminHandler.CacheStats))
	mux.HandleFunc("POST /admin/cache/evict", admin(adminHandler.CacheEvict))
	mux.HandleFunc("PUT /admin/recipes/{id}", admin(recipeHandler.AdminUpdate))
	mux.HandleFunc("DELETE /admin/recipes/{id}", admin(recipeHandler.AdminDelete))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("prepsense API v1"))
	})

	return mux
}
