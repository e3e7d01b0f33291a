// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

func openTestdata(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestParseRecipeCSV(t *testing.T) {
	recipes, rowErrs := ParseRecipeCSV(openTestdata(t, "recipes.csv"))

	require.Len(t, recipes, 2)

	pancakes := recipes[0]
	assert.Equal(t, "Pancakes", pancakes.Title)
	assert.Equal(t, "american", pancakes.Cuisine)
	assert.Equal(t, 4, pancakes.Servings)
	assert.Equal(t, 10, pancakes.PrepMinutes)
	assert.Equal(t, 15, pancakes.CookMinutes)
	assert.Equal(t, SourceImport, pancakes.Source)
	assert.Equal(t, []string{"breakfast", "sweet"}, pancakes.Tags)
	assert.Equal(t, []string{
		"Whisk the dry ingredients",
		"Beat in eggs and milk",
		"Cook on a hot griddle",
		"Serve warm",
	}, pancakes.Instructions)

	require.Len(t, pancakes.Ingredients, 5)
	assert.Equal(t, models.Ingredient{Name: "all-purpose flour", Quantity: 1.5, Unit: "cup"}, pancakes.Ingredients[0])
	assert.Equal(t, models.Ingredient{Name: "milk", Quantity: 1.25, Unit: "cup"}, pancakes.Ingredients[2])
	assert.Equal(t, models.Ingredient{Name: "butter", Quantity: 2, Unit: "tbsp", Note: "melted"}, pancakes.Ingredients[3])
	assert.Equal(t, models.Ingredient{Name: "salt", Note: "to taste"}, pancakes.Ingredients[4])

	rice := recipes[1]
	assert.Equal(t, "Garlic Rice", rice.Title)
	assert.Equal(t, []string{"Rinse the rice.", "Fry the garlic.", "Simmer rice with water."}, rice.Instructions)
	require.Len(t, rice.Ingredients, 3)
	assert.Equal(t, models.Ingredient{Name: "garlic", Quantity: 3, Unit: "each", Note: "minced"}, rice.Ingredients[1])

	require.Len(t, rowErrs, 4)
	lines := make([]int, len(rowErrs))
	for i, e := range rowErrs {
		lines[i] = e.Line
	}
	assert.Equal(t, []int{6, 7, 8, 9}, lines)
	assert.Contains(t, rowErrs[0].Error(), "title is required")
	assert.Contains(t, rowErrs[1].Error(), "servings")
	assert.Contains(t, rowErrs[2].Error(), "ingredient")
	assert.Contains(t, rowErrs[3].Error(), "duplicate title")
}

func TestParseRecipeCSV_BadHeader(t *testing.T) {
	_, rowErrs := ParseRecipeCSV(strings.NewReader("name,servings\nSoup,2\n"))
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 1, rowErrs[0].Line)

	recipes, rowErrs := ParseRecipeCSV(strings.NewReader(""))
	assert.Empty(t, recipes)
	require.Len(t, rowErrs, 1)
}

func TestParseRecipeCSV_MalformedQuotes(t *testing.T) {
	in := "title,ingredients\nGood,1 egg\nBad,\"1 egg\n"
	recipes, rowErrs := ParseRecipeCSV(strings.NewReader(in))
	require.Len(t, recipes, 1)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Line)
}

func TestParseUSDAFiles(t *testing.T) {
	categories, err := parseCategories(openTestdata(t, "usda/food_category.csv"))
	require.NoError(t, err)

	foods, skipped, err := ParseUSDAFoods(openTestdata(t, "usda/food.csv"), categories)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, foods, 2)
	assert.Equal(t, models.USDAFood{
		FDCID:           171287,
		Description:     "Egg, whole, raw, fresh",
		DataType:        "sr_legacy_food",
		FoodCategory:    "Dairy and Egg Products",
		PublicationDate: "2019-04-01",
	}, foods[0])

	nutrients, skipped, err := ParseUSDANutrients(openTestdata(t, "usda/nutrient.csv"))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, nutrients, 4)
	assert.Equal(t, models.Nutrient{ID: 1008, Name: "Energy", UnitName: "KCAL", Number: "208"}, nutrients[3])

	links, skipped, err := ParseUSDAFoodNutrients(openTestdata(t, "usda/food_nutrient.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, links, 6)
	assert.Equal(t, FoodNutrient{FDCID: 171287, NutrientID: 1003, Amount: 12.56}, links[0])
}

func TestParseUSDA_MissingColumn(t *testing.T) {
	_, _, err := ParseUSDAFoods(strings.NewReader("id,description\n1,x\n"), nil)
	assert.ErrorContains(t, err, "fdc_id")

	_, _, err = ParseUSDAFoodNutrients(strings.NewReader("fdc_id,nutrient_id\n1,2\n"))
	assert.ErrorContains(t, err, "amount")
}

func TestReadUSDADir(t *testing.T) {
	data, err := ReadUSDADir(context.Background(), filepath.Join("testdata", "usda"))
	require.NoError(t, err)
	assert.Len(t, data.Foods, 2)
	assert.Len(t, data.Nutrients, 4)
	assert.Len(t, data.FoodNutrients, 6)
	assert.Equal(t, 3, data.Skipped)
	assert.Equal(t, "Cereal Grains and Pasta", data.Foods[1].FoodCategory)
}

func TestReadUSDADir_MissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FoodFile), []byte("fdc_id,description\n1,x\n"), 0o644))

	_, err := ReadUSDADir(context.Background(), dir)
	assert.Error(t, err)
}

func TestImportRecipes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	recipes, _ := ParseRecipeCSV(openTestdata(t, "recipes.csv"))
	res, err := ImportRecipes(ctx, db, recipes)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Inserted: 2}, res)

	// Same content again is skipped
	res, err = ImportRecipes(ctx, db, recipes)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 2}, res)

	// Changed content updates in place
	recipes[0].Servings = 6
	res, err = ImportRecipes(ctx, db, recipes)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Updated: 1, Skipped: 1}, res)

	var servings, count int
	require.NoError(t, db.QueryRow(`SELECT servings FROM recipes WHERE title = 'Pancakes'`).Scan(&servings))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM recipes`).Scan(&count))
	assert.Equal(t, 6, servings)
	assert.Equal(t, 2, count)
}

func TestLoadUSDA(t *testing.T) {
	_, dsn := testutil.SetupTestSchema(t)
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)

	data, err := ReadUSDADir(ctx, filepath.Join("testdata", "usda"))
	require.NoError(t, err)
	// A link to an unknown food is dropped by the merge
	data.FoodNutrients = append(data.FoodNutrients, FoodNutrient{FDCID: 999, NutrientID: 1003, Amount: 1})

	res, err := LoadUSDA(ctx, conn, data)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Foods: 2, Nutrients: 4, FoodNutrients: 6}, res)

	// Loading twice is idempotent
	res, err = LoadUSDA(ctx, conn, data)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Foods)

	var kcal float64
	err = conn.QueryRow(ctx, `
		SELECT amount FROM usda_food_nutrients WHERE fdc_id = 169756 AND nutrient_id = 1008
	`).Scan(&kcal)
	require.NoError(t, err)
	assert.Equal(t, 365.0, kcal)
}

func TestSeedDemo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	userID, err := SeedDemo(ctx, db, "")
	require.NoError(t, err)
	assert.True(t, auth.ValidUserID(userID))

	// Seeding again reuses the user and resets the pantry
	again, err := SeedDemo(ctx, db, "")
	require.NoError(t, err)
	assert.Equal(t, userID, again)

	var items, expiring, recipes int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pantry_items WHERE user_id = $1`, userID).Scan(&items))
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM pantry_items
		WHERE user_id = $1 AND expiration_date <= CURRENT_DATE + 3
	`, userID).Scan(&expiring))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM recipes`).Scan(&recipes))
	assert.Equal(t, len(demoPantry), items)
	assert.GreaterOrEqual(t, expiring, 3)
	assert.Equal(t, len(demoRecipes), recipes)
}
