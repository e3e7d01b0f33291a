// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

// TestConcurrentConsume verifies that simultaneous consumes of one pantry
// item never use more than is there
func TestConcurrentConsume(t *testing.T) {
	env := newTestEnv(t)
	h := NewPantryHandler(env.db, env.cfg, env.conv, env.cache)

	itemID := testutil.AddTestPantryItem(t, env.db, env.userID, "eggs", 6, "each", nil)

	numCooks := 10
	var okCount, rejected atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numCooks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := env.do(h.Consume, "POST", "/pantry/"+itemID+"/consume",
				models.ConsumeRequest{Quantity: 1, Unit: "each"}, "id", itemID)
			switch w.Code {
			case http.StatusOK:
				okCount.Add(1)
			case http.StatusNotFound, http.StatusConflict:
				// The item is gone once the last egg is used
				rejected.Add(1)
			default:
				assert.Failf(t, "unexpected status", "%d: %s", w.Code, w.Body.String())
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(6), okCount.Load(), "successful consumes")
	assert.Equal(t, int32(numCooks-6), rejected.Load(), "rejected consumes")
	assert.Equal(t, 0, env.countRows(t, `SELECT COUNT(*) FROM pantry_items WHERE id = $1`, itemID),
		"used-up item should be deleted")
}

// TestConcurrentCook verifies that parallel cooks each take their share of
// the pantry and every one is counted
func TestConcurrentCook(t *testing.T) {
	env := newTestEnv(t)
	h := newUserRecipeHandler(env)

	recipeID := testutil.CreateTestRecipe(t, env.db, "Boiled Eggs", []models.Ingredient{
		{Name: "eggs", Quantity: 2, Unit: "each"},
	}, []string{"Boil the eggs for eight minutes."})
	itemID := testutil.AddTestPantryItem(t, env.db, env.userID, "eggs", 12, "each", testutil.Days(5))

	numCooks := 5
	var wg sync.WaitGroup
	for i := 0; i < numCooks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := env.do(h.Cook, "POST", "/user-recipes/"+recipeID+"/cook", nil, "recipe_id", recipeID)
			if !assert.Equal(t, http.StatusOK, w.Code, w.Body.String()) {
				return
			}
			var resp models.CookResponse
			if assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)) {
				assert.Empty(t, resp.Missing)
			}
		}()
	}
	wg.Wait()

	var remaining float64
	err := env.db.QueryRow(`SELECT quantity FROM pantry_items WHERE id = $1`, itemID).Scan(&remaining)
	require.NoError(t, err)
	assert.Equal(t, 2.0, remaining)

	var timesCooked int
	err = env.db.QueryRow(`
		SELECT times_cooked FROM user_recipes WHERE user_id = $1 AND recipe_id = $2
	`, env.userID, recipeID).Scan(&timesCooked)
	require.NoError(t, err)
	assert.Equal(t, numCooks, timesCooked)
}
