// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

func newUserRecipeHandler(env *testEnv) *UserRecipeHandler {
	return NewUserRecipeHandler(env.db, env.cfg, env.conv, env.cache)
}

func TestUserRecipeUpsert(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)
	recipeID := testutil.CreateTestRecipe(t, env.db, "Lentil Soup", nil, nil)

	w := env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var ur models.UserRecipe
	testutil.AssertJSON(t, w, &ur)
	assert.Equal(t, models.StatusSaved, ur.Status)
	assert.Equal(t, "Lentil Soup", ur.Title)
	assert.Nil(t, ur.Rating)

	rating := 5
	notes := "add more cumin"
	w = env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{
		Status: models.StatusFavorite, Rating: &rating, Notes: &notes,
	}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)
	ur = models.UserRecipe{}
	testutil.AssertJSON(t, w, &ur)
	assert.Equal(t, models.StatusFavorite, ur.Status)
	require.NotNil(t, ur.Rating)
	assert.Equal(t, 5, *ur.Rating)

	// Omitted rating and notes are kept
	w = env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{Status: models.StatusSaved}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)
	ur = models.UserRecipe{}
	testutil.AssertJSON(t, w, &ur)
	require.NotNil(t, ur.Rating)
	require.NotNil(t, ur.Notes)
	assert.Equal(t, "add more cumin", *ur.Notes)
	assert.Equal(t, 1, env.countRows(t, `SELECT COUNT(*) FROM user_recipes`))
}

func TestUserRecipeUpsert_Validation(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)
	recipeID := testutil.CreateTestRecipe(t, env.db, "Lentil Soup", nil, nil)

	six := 6
	w := env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{Rating: &six}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{Status: "eaten"}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = env.do(h.Upsert, "PUT", "/user-recipes/missing", models.UserRecipeRequest{}, "recipe_id", "missing")
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUserRecipeListDelete(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)
	soup := testutil.CreateTestRecipe(t, env.db, "Lentil Soup", nil, nil)
	salad := testutil.CreateTestRecipe(t, env.db, "Greek Salad", nil, nil)

	env.do(h.Upsert, "PUT", "/user-recipes/"+soup, models.UserRecipeRequest{Status: models.StatusFavorite}, "recipe_id", soup)
	env.do(h.Upsert, "PUT", "/user-recipes/"+salad, models.UserRecipeRequest{}, "recipe_id", salad)

	w := env.do(h.List, "GET", "/user-recipes", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var all []models.UserRecipe
	testutil.AssertJSON(t, w, &all)
	assert.Len(t, all, 2)

	w = env.do(h.List, "GET", "/user-recipes?status=favorite", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var favorites []models.UserRecipe
	testutil.AssertJSON(t, w, &favorites)
	require.Len(t, favorites, 1)
	assert.Equal(t, soup, favorites[0].RecipeID)

	w = env.do(h.List, "GET", "/user-recipes?status=nope", nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = env.do(h.Delete, "DELETE", "/user-recipes/"+soup, nil, "recipe_id", soup)
	testutil.AssertStatus(t, w, http.StatusNoContent)
	w = env.do(h.Delete, "DELETE", "/user-recipes/"+soup, nil, "recipe_id", soup)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestCook(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)
	ctx := context.Background()

	recipeID := testutil.CreateTestRecipe(t, env.db, "Omelette", []models.Ingredient{
		{Name: "eggs", Quantity: 3, Unit: "each"},
		{Name: "milk", Quantity: 0.25, Unit: "cup"},
		{Name: "chives", Quantity: 1, Unit: "tbsp"},
		{Name: "salt", Quantity: 0},
	}, []string{"Whisk eggs and milk.", "Cook gently."})

	soon := testutil.AddTestPantryItem(t, env.db, env.userID, "egg", 2, "each", testutil.Days(1))
	later := testutil.AddTestPantryItem(t, env.db, env.userID, "egg", 6, "each", testutil.Days(10))
	expired := testutil.AddTestPantryItem(t, env.db, env.userID, "milk", 1, "cup", testutil.Days(-2))
	milk := testutil.AddTestPantryItem(t, env.db, env.userID, "milk", 1, "cup", nil)

	key := recommendationsPrefix(env.userID) + "10:0"
	require.NoError(t, env.cache.Set(ctx, key, models.RecommendationsResponse{}, 0))

	w := env.do(h.Cook, "POST", "/user-recipes/"+recipeID+"/cook", nil, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.CookResponse
	testutil.AssertJSON(t, w, &resp)

	assert.Equal(t, recipeID, resp.RecipeID)
	assert.Equal(t, 1, resp.TimesCooked)
	assert.Equal(t, []string{"1 tbsp chives"}, resp.Missing)

	used := map[string]models.ConsumedItem{}
	for _, c := range resp.Consumed {
		used[c.PantryItemID] = c
	}
	require.Len(t, used, 3)
	assert.Equal(t, 2.0, used[soon].Used)
	assert.Equal(t, 1.0, used[later].Used)
	assert.Equal(t, 0.25, used[milk].Used)
	assert.NotContains(t, used, expired)

	// The emptied item is gone, the rest are reduced
	assert.Equal(t, 0, env.countRows(t, `SELECT COUNT(*) FROM pantry_items WHERE id = $1`, soon))
	var qty float64
	require.NoError(t, env.db.QueryRow(`SELECT quantity FROM pantry_items WHERE id = $1`, later).Scan(&qty))
	assert.Equal(t, 5.0, qty)
	require.NoError(t, env.db.QueryRow(`SELECT quantity FROM pantry_items WHERE id = $1`, milk).Scan(&qty))
	assert.Equal(t, 0.75, qty)
	require.NoError(t, env.db.QueryRow(`SELECT quantity FROM pantry_items WHERE id = $1`, expired).Scan(&qty))
	assert.Equal(t, 1.0, qty)

	var status string
	require.NoError(t, env.db.QueryRow(`
		SELECT status FROM user_recipes WHERE user_id = $1 AND recipe_id = $2
	`, env.userID, recipeID).Scan(&status))
	assert.Equal(t, models.StatusCooked, status)

	found, err := env.cache.Get(ctx, key, &models.RecommendationsResponse{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCook_KeepsFavoriteAndCounts(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)

	recipeID := testutil.CreateTestRecipe(t, env.db, "Toast", []models.Ingredient{
		{Name: "bread", Quantity: 2, Unit: "slices"},
	}, nil)
	testutil.AddTestPantryItem(t, env.db, env.userID, "bread", 3, "each", nil)

	w := env.do(h.Upsert, "PUT", "/user-recipes/"+recipeID, models.UserRecipeRequest{Status: models.StatusFavorite}, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = env.do(h.Cook, "POST", "/user-recipes/"+recipeID+"/cook", nil, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)

	// Only one slice left; the cook still succeeds and reports the gap
	w = env.do(h.Cook, "POST", "/user-recipes/"+recipeID+"/cook", nil, "recipe_id", recipeID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.CookResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, 2, resp.TimesCooked)
	assert.Equal(t, []string{"1 slices bread"}, resp.Missing)
	assert.Equal(t, 0, env.countRows(t, `SELECT COUNT(*) FROM pantry_items WHERE user_id = $1`, env.userID))

	w = env.do(h.List, "GET", "/user-recipes?status=favorite", nil)
	var favorites []models.UserRecipe
	testutil.AssertJSON(t, w, &favorites)
	require.Len(t, favorites, 1)
	assert.Equal(t, 2, favorites[0].TimesCooked)
	assert.NotNil(t, favorites[0].LastCookedAt)
}

func TestCook_RecipeNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)

	w := env.do(h.Cook, "POST", "/user-recipes/missing/cook", nil, "recipe_id", "missing")
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
