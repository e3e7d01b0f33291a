// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielhkuo/prepsense/instructions"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

const SourceSpoonacular = "spoonacular"

// SpoonacularClient searches recipes by ingredient on the Spoonacular API
type SpoonacularClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   Retry
}

func NewSpoonacularClient(apiKey, baseURL string) *SpoonacularClient {
	return &SpoonacularClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
		retry:   DefaultRetry(),
	}
}

// WithRetry replaces the retry policy
func (c *SpoonacularClient) WithRetry(r Retry) *SpoonacularClient {
	c.retry = r
	return c
}

// Configured reports whether an API key is set
func (c *SpoonacularClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

type spoonIngredient struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Original string  `json:"original"`
}

type spoonFoundRecipe struct {
	ID                    int               `json:"id"`
	Title                 string            `json:"title"`
	Image                 string            `json:"image"`
	UsedIngredientCount   int               `json:"usedIngredientCount"`
	MissedIngredientCount int               `json:"missedIngredientCount"`
	UsedIngredients       []spoonIngredient `json:"usedIngredients"`
	MissedIngredients     []spoonIngredient `json:"missedIngredients"`
}

type spoonStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

type spoonInstructionBlock struct {
	Steps []spoonStep `json:"steps"`
}

type spoonRecipeInfo struct {
	ID                   int                     `json:"id"`
	Title                string                  `json:"title"`
	Summary              string                  `json:"summary"`
	Servings             int                     `json:"servings"`
	PreparationMinutes   *int                    `json:"preparationMinutes"`
	CookingMinutes       *int                    `json:"cookingMinutes"`
	ReadyInMinutes       int                     `json:"readyInMinutes"`
	Cuisines             []string                `json:"cuisines"`
	DishTypes            []string                `json:"dishTypes"`
	Instructions         string                  `json:"instructions"`
	ExtendedIngredients  []spoonIngredient       `json:"extendedIngredients"`
	AnalyzedInstructions []spoonInstructionBlock `json:"analyzedInstructions"`
}

// SearchByIngredients finds recipes that use the given ingredients,
// maximising used ingredients first.
func (c *SpoonacularClient) SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]models.ExternalRecipe, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(ingredients) == 0 {
		return []models.ExternalRecipe{}, nil
	}
	if number <= 0 || number > 100 {
		number = 10
	}

	q := url.Values{}
	q.Set("ingredients", strings.Join(ingredients, ","))
	q.Set("number", strconv.Itoa(number))
	q.Set("ranking", "1")
	q.Set("ignorePantry", "true")

	var found []spoonFoundRecipe
	if err := c.get(ctx, "findByIngredients", "/recipes/findByIngredients", q, &found); err != nil {
		return nil, err
	}

	out := make([]models.ExternalRecipe, 0, len(found))
	for _, f := range found {
		out = append(out, models.ExternalRecipe{
			ID:                    f.ID,
			Title:                 f.Title,
			Image:                 f.Image,
			UsedIngredientCount:   f.UsedIngredientCount,
			MissedIngredientCount: f.MissedIngredientCount,
			UsedIngredients:       ingredientNames(f.UsedIngredients),
			MissedIngredients:     ingredientNames(f.MissedIngredients),
		})
	}
	return out, nil
}

// RecipeInformation fetches one recipe and converts it to a local Recipe
// with normalized ingredients.
func (c *SpoonacularClient) RecipeInformation(ctx context.Context, id int) (*models.Recipe, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var info spoonRecipeInfo
	path := fmt.Sprintf("/recipes/%d/information", id)
	q := url.Values{}
	q.Set("includeNutrition", "false")
	if err := c.get(ctx, "recipeInformation", path, q, &info); err != nil {
		return nil, err
	}
	return info.toRecipe(), nil
}

func (c *SpoonacularClient) get(ctx context.Context, op, path string, q url.Values, dst any) error {
	q.Set("apiKey", c.apiKey)
	endpoint := c.baseURL + path + "?" + q.Encode()

	err := c.retry.Do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return redactURL(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := statusDoer{c.http}.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(dst)
	})
	if err == nil {
		return nil
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusPaymentRequired, http.StatusTooManyRequests:
			return fmt.Errorf("spoonacular %s: %w", op, ErrRateLimited)
		case http.StatusNotFound:
			return fmt.Errorf("spoonacular %s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("spoonacular %s: %w", op, err)
}

func ingredientNames(in []spoonIngredient) []string {
	names := make([]string, 0, len(in))
	for _, i := range in {
		names = append(names, units.NormalizeIngredient(i.Name))
	}
	return names
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func (info spoonRecipeInfo) toRecipe() *models.Recipe {
	r := &models.Recipe{
		Title:       info.Title,
		Description: strings.TrimSpace(htmlTag.ReplaceAllString(info.Summary, "")),
		Servings:    info.Servings,
		Tags:        append([]string{}, info.DishTypes...),
		Source:      SourceSpoonacular,
	}
	if r.Servings <= 0 {
		r.Servings = 1
	}
	if len(info.Cuisines) > 0 {
		r.Cuisine = strings.ToLower(info.Cuisines[0])
	}

	sourceID := strconv.Itoa(info.ID)
	r.SourceID = &sourceID

	switch {
	case info.PreparationMinutes != nil && *info.PreparationMinutes > 0 && info.CookingMinutes != nil && *info.CookingMinutes > 0:
		r.PrepMinutes = *info.PreparationMinutes
		r.CookMinutes = *info.CookingMinutes
	default:
		r.CookMinutes = info.ReadyInMinutes
	}

	for _, ing := range info.ExtendedIngredients {
		r.Ingredients = append(r.Ingredients, models.Ingredient{
			Name:     units.NormalizeIngredient(ing.Name),
			Quantity: ing.Amount,
			Unit:     units.CanonicalUnit(ing.Unit),
		})
	}

	for _, block := range info.AnalyzedInstructions {
		for _, s := range block.Steps {
			if text := strings.TrimSpace(s.Step); text != "" {
				r.Instructions = append(r.Instructions, text)
			}
		}
	}
	if len(r.Instructions) == 0 {
		r.Instructions = instructions.SplitSteps(htmlTag.ReplaceAllString(info.Instructions, "\n"))
	}
	return r
}
