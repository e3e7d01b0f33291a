// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package units converts ingredient quantities between units.

# Units

Every unit belongs to a dimension with a base unit:

	mass   → g    (g, kg, mg, oz, lb)
	volume → ml   (ml, l, tsp, tbsp, cup, fl oz, pint, quart, gallon)
	count  → each (each, piece, clove, can, large, ...)

NormalizeUnit maps spellings such as "Tablespoons", "tbsp.", "T" or "lbs"
to the canonical unit. Capital "T" is a tablespoon, lower-case "t" a
teaspoon.

# Conversion

Within a dimension, conversion is a ratio of factors. Across dimensions,
the Converter goes through grams using per-ingredient tables:

	c := units.NewConverter()
	grams, err := c.Convert(1, "cup", "g", "flour")   // ≈ 125.4
	eggs, err := c.Convert(100, "g", "each", "eggs")  // 2

Ingredients are looked up by NormalizeIngredient and then by dropping
leading words, so "unsalted butter" uses the "butter" density. Missing
entries yield ErrIncompatibleUnits.

LoadOverrides merges extra densities, unit weights and categories from YAML.

# Parsing

ParseIngredientLine splits a recipe line into quantity, unit, name and note:

	ing, err := units.ParseIngredientLine("2 1/2 cups flour, sifted")
	// {Name: "flour", Quantity: 2.5, Unit: "cup", Note: "sifted"}
*/
package units
