// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package importer loads recipes and USDA nutrition data into the database.

# Recipes

ParseRecipeCSV reads a CSV with a header row. Ingredients are separated by
";" or newlines and parsed with units.ParseIngredientLine; instructions
are "|"-separated or free text. ImportRecipes upserts by title:

	recipes, rowErrs := importer.ParseRecipeCSV(f)
	res, err := importer.ImportRecipes(ctx, db, recipes)

# USDA FoodData Central

ReadUSDADir parses food.csv, nutrient.csv and food_nutrient.csv in
parallel. LoadUSDA copies the rows into staging tables with pgx COPY and
merges them into usda_foods, usda_nutrients and usda_food_nutrients.

# Demo data

SeedDemo creates a demo user with a partly expiring pantry and a few
recipes.
*/
package importer
