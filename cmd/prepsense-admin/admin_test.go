// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

// execute runs the root command with args and returns what it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		flagOutput = ""
		flagCacheTestPath = ""
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOutputFormat(t *testing.T) {
	t.Cleanup(func() { flagOutput = "" })

	var buf bytes.Buffer
	assert.Equal(t, outputJSON, outputFormat(&buf), "non-terminal writers get JSON")

	flagOutput = outputTable
	assert.Equal(t, outputTable, outputFormat(&buf))
}

func TestRender(t *testing.T) {
	t.Cleanup(func() { flagOutput = "" })
	v := map[string]int{"eggs": 6}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, v, []string{"Name", "Count"}, [][]string{{"eggs", "6"}}))
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, v, decoded)

	buf.Reset()
	flagOutput = outputTable
	require.NoError(t, render(&buf, v, []string{"Name", "Count"}, [][]string{{"eggs", "6"}}))
	assert.Contains(t, buf.String(), "eggs")
	assert.Contains(t, strings.ToUpper(buf.String()), "COUNT")
}

func TestExpiryText(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 3)
	past := now.AddDate(0, 0, -2)

	assert.Equal(t, "-", expiryText(nil, now))
	assert.True(t, strings.HasPrefix(expiryText(&soon, now), "2025-03-13 ("))
	assert.Contains(t, expiryText(&soon, now), "from now")
	assert.Contains(t, expiryText(&past, now), "ago")
}

func TestQuantityText(t *testing.T) {
	assert.Equal(t, "1.5 kg", quantityText(1.5, "kg"))
	assert.Equal(t, "2 each", quantityText(2, "each"))
}

func TestAcquireImportLock(t *testing.T) {
	dir := t.TempDir()

	lock, err := acquireImportLock(dir)
	require.NoError(t, err)

	_, err = acquireImportLock(dir)
	assert.ErrorIs(t, err, errImportRunning)

	require.NoError(t, lock.Unlock())
	again, err := acquireImportLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestInvalidOutputFlag(t *testing.T) {
	_, err := execute(t, "cache", "test", "--output", "xml")
	assert.ErrorContains(t, err, "--output")
}

func TestCacheTestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	out, err := execute(t, "cache", "test", "--cache-path", path, "--output", "json")
	require.NoError(t, err)

	var results []cache.GuardrailResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
	}
}

func TestCleanupDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	cfg := testutil.GetTestConfig()
	userID, _ := testutil.CreateTestUser(t, db, cfg, "tidy@example.com")

	testutil.AddTestPantryItem(t, db, userID, "old yogurt", 1, "each", testutil.Days(-30))
	testutil.AddTestPantryItem(t, db, userID, "recent milk", 1, "cup", testutil.Days(-2))
	testutil.AddTestPantryItem(t, db, userID, "rice", 1, "kg", nil)

	_, err := db.Exec(`
		INSERT INTO shopping_list_items (id, user_id, name, checked, updated_at) VALUES
			('s1', $1, 'flour', TRUE, NOW() - INTERVAL '30 days'),
			('s2', $1, 'sugar', TRUE, NOW()),
			('s3', $1, 'salt', FALSE, NOW() - INTERVAL '30 days')
	`, userID)
	require.NoError(t, err)

	res, err := cleanupDatabase(ctx, db, 7, true)
	require.NoError(t, err)
	assert.Equal(t, cleanupResult{PantryItems: 1, ShoppingItems: 1, DryRun: true}, res)

	items, err := listPantry(ctx, db, userID)
	require.NoError(t, err)
	assert.Len(t, items, 3, "dry run deletes nothing")

	res, err = cleanupDatabase(ctx, db, 7, false)
	require.NoError(t, err)
	assert.Equal(t, cleanupResult{PantryItems: 1, ShoppingItems: 1}, res)

	items, err = listPantry(ctx, db, userID)
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"recent milk", "rice"}, names, "soonest expiry first, undated last")

	var left int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM shopping_list_items`).Scan(&left))
	assert.Equal(t, 2, left)
}

func TestListRecipes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	eggs := []models.Ingredient{{Name: "eggs", Quantity: 2, Unit: "each"}}
	omelette := testutil.CreateTestRecipe(t, db, "Cheese Omelette", eggs, []string{"Whisk.", "Cook."})
	testutil.CreateTestRecipe(t, db, "Boiled Eggs", eggs, []string{"Boil."})
	testutil.CreateTestRecipe(t, db, "100% Rye", nil, []string{"Bake."})

	all, err := listRecipes(ctx, db, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "100% Rye", all[0].Title)

	got, err := listRecipes(ctx, db, "OMELETTE", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, omelette, got[0].ID)

	got, err = listRecipes(ctx, db, "%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "percent is matched literally")

	got, err = listRecipes(ctx, db, "", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
