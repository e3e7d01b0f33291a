// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// User recipe status constants
const (
	StatusSaved    = "saved"
	StatusFavorite = "favorite"
	StatusCooked   = "cooked"
)

// Pantry category constants
const (
	CategoryProduce   = "produce"
	CategoryDairy     = "dairy"
	CategoryMeat      = "meat"
	CategorySeafood   = "seafood"
	CategoryGrains    = "grains"
	CategoryBaking    = "baking"
	CategoryCanned    = "canned"
	CategoryFrozen    = "frozen"
	CategorySpices    = "spices"
	CategoryBeverages = "beverages"
	CategoryOther     = "other"
)

// ValidCategory reports whether c is one of the pantry categories
func ValidCategory(c string) bool {
	switch c {
	case CategoryProduce, CategoryDairy, CategoryMeat, CategorySeafood,
		CategoryGrains, CategoryBaking, CategoryCanned, CategoryFrozen,
		CategorySpices, CategoryBeverages, CategoryOther:
		return true
	}
	return false
}

// Instruction phase constants
const (
	PhasePrep   = "prep"
	PhaseCook   = "cook"
	PhaseFinish = "finish"
)

// Request types

type RegisterUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type PantryItemRequest struct {
	Name           string   `json:"name"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	Category       string   `json:"category"`
	ProductID      *string  `json:"product_id,omitempty"`
	ExpirationDate *string  `json:"expiration_date,omitempty"` // YYYY-MM-DD
	ShelfLifeDays  *int     `json:"shelf_life_days,omitempty"`
	PricePaid      *float64 `json:"price_paid,omitempty"`
}

type ConsumeRequest struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

type RecipeRequest struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Cuisine      string       `json:"cuisine"`
	Servings     int          `json:"servings"`
	PrepMinutes  int          `json:"prep_minutes"`
	CookMinutes  int          `json:"cook_minutes"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tags         []string     `json:"tags"`
}

type UserRecipeRequest struct {
	Status string  `json:"status"`
	Rating *int    `json:"rating,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

type ShoppingItemRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

type UpdateShoppingItemRequest struct {
	Checked  *bool    `json:"checked,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
}

type AISuggestRequest struct {
	Count int `json:"count"`
}

type EvictRequest struct {
	Prefix string `json:"prefix"`
}

// Response types

type RegisterUserResponse struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type ConsumeResponse struct {
	Remaining float64 `json:"remaining"`
	Unit      string  `json:"unit"`
	Deleted   bool    `json:"deleted"`
}

type CookResponse struct {
	RecipeID    string         `json:"recipe_id"`
	TimesCooked int            `json:"times_cooked"`
	Consumed    []ConsumedItem `json:"consumed"`
	Missing     []string       `json:"missing"`
	Warnings    []string       `json:"warnings,omitempty"`
}

type ConsumedItem struct {
	PantryItemID string  `json:"pantry_item_id"`
	Name         string  `json:"name"`
	Used         float64 `json:"used"`
	Unit         string  `json:"unit"`
	Remaining    float64 `json:"remaining"`
}

type RecipeDetail struct {
	Recipe Recipe             `json:"recipe"`
	Groups []InstructionGroup `json:"instruction_groups"`
}

type RecommendationsResponse struct {
	Matches     []RecipeMatch `json:"matches"`
	PantryCount int           `json:"pantry_count"`
	Cached      bool          `json:"cached"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

type AISuggestResponse struct {
	Ideas  []RecipeIdea `json:"ideas"`
	Pantry []string     `json:"pantry"`
}

type ExternalRecipesResponse struct {
	Recipes []ExternalRecipe `json:"recipes"`
	Cached  bool             `json:"cached"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Domain types

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	DefaultUnit   string `json:"default_unit"`
	ShelfLifeDays *int   `json:"shelf_life_days,omitempty"`
}

type PantryItem struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ProductID      *string    `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	Category       string     `json:"category"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	PricePaid      *float64   `json:"price_paid,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Ingredient is one line of a recipe. Quantity 0 means "to taste".
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Note     string  `json:"note,omitempty"`
}

type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Cuisine      string       `json:"cuisine"`
	Servings     int          `json:"servings"`
	PrepMinutes  int          `json:"prep_minutes"`
	CookMinutes  int          `json:"cook_minutes"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tags         []string     `json:"tags"`
	Source       string       `json:"source"`
	SourceID     *string      `json:"source_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type UserRecipe struct {
	UserID       string     `json:"user_id"`
	RecipeID     string     `json:"recipe_id"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status"`
	Rating       *int       `json:"rating,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	TimesCooked  int        `json:"times_cooked"`
	LastCookedAt *time.Time `json:"last_cooked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ShoppingListItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Category  string    `json:"category"`
	Checked   bool      `json:"checked"`
	RecipeID  *string   `json:"recipe_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instruction grouping

type InstructionStep struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type InstructionGroup struct {
	Phase string            `json:"phase"`
	Title string            `json:"title"`
	Steps []InstructionStep `json:"steps"`
}

// Recommendation types

type IngredientMatch struct {
	Ingredient   Ingredient `json:"ingredient"`
	PantryItemID string     `json:"pantry_item_id,omitempty"`
	PantryName   string     `json:"pantry_name,omitempty"`
	Expiring     bool       `json:"expiring,omitempty"`
	Shortfall    float64    `json:"shortfall,omitempty"` // in the ingredient's unit
}

type RecipeMatch struct {
	RecipeID     string            `json:"recipe_id"`
	Title        string            `json:"title"`
	Score        float64           `json:"score"`
	CanMake      bool              `json:"can_make"`
	Matched      []IngredientMatch `json:"matched"`
	Insufficient []IngredientMatch `json:"insufficient"`
	Missing      []Ingredient      `json:"missing"`
	ExpiringUsed []string          `json:"expiring_used"`
}

// External recommendation types

type ExternalRecipe struct {
	ID                    int      `json:"id"`
	Title                 string   `json:"title"`
	Image                 string   `json:"image,omitempty"`
	UsedIngredientCount   int      `json:"used_ingredient_count"`
	MissedIngredientCount int      `json:"missed_ingredient_count"`
	UsedIngredients       []string `json:"used_ingredients"`
	MissedIngredients     []string `json:"missed_ingredients"`
}

type RecipeIdea struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Why          string   `json:"why,omitempty"`
}

// Nutrition types

type USDAFood struct {
	FDCID           int        `json:"fdc_id"`
	Description     string     `json:"description"`
	DataType        string     `json:"data_type"`
	FoodCategory    string     `json:"food_category,omitempty"`
	PublicationDate string     `json:"publication_date,omitempty"`
	Nutrients       []Nutrient `json:"nutrients,omitempty"`
}

type Nutrient struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	UnitName string  `json:"unit_name"`
	Number   string  `json:"nutrient_nbr,omitempty"`
	Amount   float64 `json:"amount"` // per 100 g
}

type NutritionSummary struct {
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
	CarbohydrateG float64 `json:"carbohydrate_g"`
}

type IngredientNutrition struct {
	Ingredient Ingredient        `json:"ingredient"`
	FDCID      *int              `json:"fdc_id,omitempty"`
	Matched    string            `json:"matched,omitempty"`
	Grams      *float64          `json:"grams,omitempty"`
	Summary    *NutritionSummary `json:"summary,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

type RecipeNutrition struct {
	RecipeID    string                `json:"recipe_id"`
	Servings    int                   `json:"servings"`
	Total       NutritionSummary      `json:"total"`
	PerServing  NutritionSummary      `json:"per_serving"`
	Ingredients []IngredientNutrition `json:"ingredients"`
}

// Cache types

type CacheStats struct {
	Hits      int64    `json:"hits"`
	Misses    int64    `json:"misses"`
	Sets      int64    `json:"sets"`
	Evictions int64    `json:"evictions"`
	Errors    int64    `json:"errors"`
	HitRate   float64  `json:"hit_rate"`
	Entries   int      `json:"entries"`
	Alerts    []string `json:"alerts"`
}

type EvictResponse struct {
	Evicted int `json:"evicted"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
