// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterUserRequest: email, display_name
  - PantryItemRequest: name, quantity, unit, category, expiration_date
  - ConsumeRequest: quantity, unit
  - RecipeRequest: title, ingredients, instructions, tags, ...
  - UserRecipeRequest: status, rating, notes
  - ShoppingItemRequest / UpdateShoppingItemRequest

# Response Types

  - RegisterUserResponse: user_id, api_key
  - CreatedResponse: id
  - RecipeDetail: recipe plus grouped instructions
  - RecommendationsResponse: ranked recipe matches
  - CookResponse: pantry items consumed by cooking a recipe
  - ErrorResponse: error, message

# Domain Types

  - User, Product, PantryItem
  - Recipe, Ingredient, UserRecipe
  - ShoppingListItem
  - InstructionGroup, InstructionStep
  - RecipeMatch, IngredientMatch, ExternalRecipe, RecipeIdea
  - USDAFood, Nutrient, NutritionSummary, RecipeNutrition
  - CacheStats

# Constants

User recipe status values:

	StatusSaved    = "saved"
	StatusFavorite = "favorite"
	StatusCooked   = "cooked"

Instruction phases:

	PhasePrep   = "prep"
	PhaseCook   = "cook"
	PhaseFinish = "finish"

Pantry categories are the Category* constants (produce, dairy, meat, ...).
*/
package models
