// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/clients"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

func testDeps() Deps {
	return Deps{Cache: cache.NewManager(cache.NewMemoryStore(), cache.Options{})}
}

func TestHealthEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	for _, path := range []string{"/health", "/health/ready"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "OK", w.Body.String(), path)
	}
}

func TestRootEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "prepsense API v1", w.Body.String())

	// Only the exact root is served
	req = httptest.NewRequest("GET", "/no-such-route", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown path")
}

func TestRouteExistence(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	// Without credentials every user route answers 401 from the auth
	// middleware, which proves the route matched
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/users/me"},

		{"GET", "/pantry"},
		{"POST", "/pantry"},
		{"GET", "/pantry/expiring"},
		{"GET", "/pantry/item-id"},
		{"PUT", "/pantry/item-id"},
		{"DELETE", "/pantry/item-id"},
		{"POST", "/pantry/item-id/consume"},

		{"GET", "/recipes"},
		{"POST", "/recipes"},
		{"GET", "/recipes/recipe-id"},
		{"PUT", "/recipes/recipe-id"},
		{"DELETE", "/recipes/recipe-id"},
		{"GET", "/recipes/recipe-id/nutrition"},

		{"GET", "/user-recipes"},
		{"PUT", "/user-recipes/recipe-id"},
		{"DELETE", "/user-recipes/recipe-id"},
		{"POST", "/user-recipes/recipe-id/cook"},

		{"GET", "/shopping-list"},
		{"POST", "/shopping-list"},
		{"DELETE", "/shopping-list"},
		{"PATCH", "/shopping-list/item-id"},
		{"DELETE", "/shopping-list/item-id"},
		{"POST", "/shopping-list/from-recipe/recipe-id"},

		{"GET", "/recommendations"},
		{"GET", "/recommendations/external"},
		{"GET", "/recommendations/external/716429"},
		{"POST", "/recommendations/ai"},

		{"GET", "/nutrition/foods"},
		{"GET", "/nutrition/foods/123"},

		{"GET", "/admin/cache/stats"},
		{"POST", "/admin/cache/evict"},
		{"PUT", "/admin/recipes/recipe-id"},
		{"DELETE", "/admin/recipes/recipe-id"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},               // Only GET is defined
		{"PATCH", "/pantry/item-id"},      // GET, PUT and DELETE are defined
		{"PUT", "/shopping-list/item-id"}, // PATCH and DELETE are defined
		{"GET", "/admin/cache/evict"},     // Only POST is defined
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	userID, apiKey := testutil.CreateTestUser(t, db, cfg, "cook@example.com")
	itemID := testutil.AddTestPantryItem(t, db, userID, "rice", 1, "kg", nil)

	mux := NewRouter(db, cfg, testDeps())

	req := testutil.MakeRequest("GET", "/pantry/"+itemID, nil, testutil.UserHeaders(userID, apiKey))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var item models.PantryItem
	testutil.AssertJSON(t, w, &item)
	assert.Equal(t, itemID, item.ID)
}

func TestAdminRoutes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	req := testutil.MakeRequest("GET", "/admin/cache/stats", nil, map[string]string{"X-Admin-Key": "wrong"})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	req = testutil.MakeRequest("GET", "/admin/cache/stats", nil, map[string]string{"X-Admin-Key": cfg.AdminKey})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestProvidersNotConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	userID, apiKey := testutil.CreateTestUser(t, db, cfg, "cook@example.com")
	testutil.AddTestPantryItem(t, db, userID, "rice", 1, "kg", nil)

	// A client without a key counts as not configured
	deps := testDeps()
	deps.Spoonacular = clients.NewSpoonacularClient("", "")
	mux := NewRouter(db, cfg, deps)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/recommendations/external"},
		{"POST", "/recommendations/ai"},
	} {
		req := testutil.MakeRequest(tc.method, tc.path, nil, testutil.UserHeaders(userID, apiKey))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	}
}

// TestPantryToCookFlow drives the main user journey through the router:
// register, stock the pantry, get a recommendation, cook it.
func TestPantryToCookFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, testDeps())

	serve := func(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest(method, path, body, headers))
		return w
	}

	w := serve("POST", "/users", models.RegisterUserRequest{Email: "flow@example.com"}, nil)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var reg models.RegisterUserResponse
	testutil.AssertJSON(t, w, &reg)
	headers := testutil.UserHeaders(reg.UserID, reg.APIKey)

	w = serve("POST", "/recipes", models.RecipeRequest{
		Title:        "Scrambled Eggs",
		Servings:     1,
		Ingredients:  []models.Ingredient{{Name: "eggs", Quantity: 2, Unit: "each"}, {Name: "butter", Quantity: 1, Unit: "tbsp"}},
		Instructions: []string{"Whisk the eggs.", "Melt the butter in a pan.", "Cook the eggs, stirring."},
	}, headers)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var recipe models.Recipe
	testutil.AssertJSON(t, w, &recipe)

	for _, item := range []models.PantryItemRequest{
		{Name: "eggs", Quantity: 6, Unit: "each"},
		{Name: "butter", Quantity: 250, Unit: "g"},
	} {
		w = serve("POST", "/pantry", item, headers)
		testutil.AssertStatus(t, w, http.StatusCreated)
	}

	w = serve("GET", "/recommendations", nil, headers)
	testutil.AssertStatus(t, w, http.StatusOK)
	var recs models.RecommendationsResponse
	testutil.AssertJSON(t, w, &recs)
	require.NotEmpty(t, recs.Matches)
	assert.Equal(t, recipe.ID, recs.Matches[0].RecipeID)
	assert.True(t, recs.Matches[0].CanMake)

	w = serve("POST", "/user-recipes/"+recipe.ID+"/cook", nil, headers)
	testutil.AssertStatus(t, w, http.StatusOK)
	var cooked models.CookResponse
	testutil.AssertJSON(t, w, &cooked)
	assert.Equal(t, 1, cooked.TimesCooked)
	assert.Empty(t, cooked.Missing)
	assert.Len(t, cooked.Consumed, 2)

	w = serve("GET", "/pantry", nil, headers)
	var pantry []models.PantryItem
	testutil.AssertJSON(t, w, &pantry)
	require.Len(t, pantry, 2)
	for _, p := range pantry {
		if p.Name == "eggs" {
			assert.Equal(t, 4.0, p.Quantity)
		}
	}
}
