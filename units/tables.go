// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package units

// Grams per milliliter, keyed by normalized ingredient name.
var defaultDensities = map[string]float64{
	"water":             1.0,
	"milk":              1.03,
	"buttermilk":        1.03,
	"cream":             1.01,
	"heavy cream":       0.99,
	"yogurt":            1.03,
	"sour cream":        0.96,
	"butter":            0.911,
	"oil":               0.92,
	"olive oil":         0.91,
	"vegetable oil":     0.92,
	"honey":             1.42,
	"maple syrup":       1.32,
	"molasses":          1.4,
	"vinegar":           1.01,
	"soy sauce":         1.2,
	"broth":             1.0,
	"stock":             1.0,
	"juice":             1.04,
	"wine":              0.99,
	"flour":             0.53,
	"bread flour":       0.55,
	"whole wheat flour": 0.51,
	"sugar":             0.85,
	"brown sugar":       0.93,
	"powdered sugar":    0.56,
	"salt":              1.2,
	"kosher salt":       0.54,
	"baking soda":       0.92,
	"baking powder":     0.9,
	"cocoa powder":      0.42,
	"rice":              0.85,
	"oat":               0.41,
	"rolled oat":        0.41,
	"cornmeal":          0.62,
	"cornstarch":        0.54,
	"peanut butter":     1.08,
	"ketchup":           1.15,
	"mayonnaise":        0.95,
	"parmesan":          0.42,
	"cheddar":           0.45,
	"cheese":            0.45,
	"lentil":            0.81,
	"bean":              0.78,
	"chickpea":          0.74,
	"pasta":             0.43,
	"quinoa":            0.72,
	"tomato sauce":      1.03,
	"cinnamon":          0.56,
	"cumin":             0.42,
	"paprika":           0.46,
	"black pepper":      0.48,
	"pepper":            0.48,
}

// Grams per piece, keyed by normalized ingredient name.
var defaultUnitWeights = map[string]float64{
	"egg":            50,
	"garlic":         5,
	"garlic clove":   5,
	"onion":          110,
	"red onion":      110,
	"shallot":        40,
	"tomato":         123,
	"potato":         213,
	"sweet potato":   130,
	"carrot":         61,
	"celery":         40,
	"apple":          182,
	"banana":         118,
	"lemon":          58,
	"lime":           44,
	"orange":         131,
	"avocado":        150,
	"bell pepper":    119,
	"jalapeno":       14,
	"zucchini":       196,
	"cucumber":       301,
	"chicken breast": 174,
	"tortilla":       45,
	"bread":          28,
	"bagel":          105,
	"mushroom":       18,
	"scallion":       15,
	"green onion":    15,
}

var defaultCategories = map[string]string{
	"egg": "dairy", "milk": "dairy", "buttermilk": "dairy", "cream": "dairy", "heavy cream": "dairy",
	"butter": "dairy", "yogurt": "dairy", "sour cream": "dairy", "cheese": "dairy",
	"cheddar": "dairy", "parmesan": "dairy", "mozzarella": "dairy",

	"garlic": "produce", "garlic clove": "produce", "onion": "produce", "shallot": "produce", "tomato": "produce",
	"potato": "produce", "sweet potato": "produce", "carrot": "produce", "celery": "produce",
	"apple": "produce", "banana": "produce", "lemon": "produce", "lime": "produce",
	"orange": "produce", "avocado": "produce", "bell pepper": "produce", "jalapeno": "produce",
	"zucchini": "produce", "cucumber": "produce", "spinach": "produce", "lettuce": "produce",
	"broccoli": "produce", "mushroom": "produce", "scallion": "produce", "green onion": "produce",
	"basil": "produce", "cilantro": "produce", "parsley": "produce", "ginger": "produce",

	"chicken": "meat", "chicken breast": "meat", "beef": "meat", "ground beef": "meat",
	"pork": "meat", "bacon": "meat", "sausage": "meat", "turkey": "meat", "ham": "meat",

	"salmon": "seafood", "shrimp": "seafood", "tuna": "seafood", "cod": "seafood",

	"rice": "grains", "pasta": "grains", "oat": "grains", "rolled oat": "grains",
	"quinoa": "grains", "bread": "grains", "tortilla": "grains", "bagel": "grains",
	"cornmeal": "grains",

	"flour": "baking", "bread flour": "baking", "whole wheat flour": "baking", "sugar": "baking",
	"brown sugar": "baking", "powdered sugar": "baking", "baking soda": "baking",
	"baking powder": "baking", "cocoa powder": "baking", "cornstarch": "baking",
	"honey": "baking", "maple syrup": "baking", "molasses": "baking",

	"bean": "canned", "chickpea": "canned", "lentil": "canned", "tomato sauce": "canned",
	"broth": "canned", "stock": "canned",

	"salt": "spices", "kosher salt": "spices", "pepper": "spices", "black pepper": "spices",
	"cinnamon": "spices", "cumin": "spices", "paprika": "spices", "oregano": "spices",

	"water": "beverages", "juice": "beverages", "wine": "beverages", "coffee": "beverages",

	"oil": "other", "olive oil": "other", "vegetable oil": "other", "vinegar": "other",
	"soy sauce": "other", "ketchup": "other", "mayonnaise": "other", "peanut butter": "other",
}

// Ingredients stocked by volume
var liquids = map[string]bool{
	"water": true, "milk": true, "buttermilk": true, "cream": true, "heavy cream": true,
	"oil": true, "olive oil": true, "vegetable oil": true, "vinegar": true,
	"soy sauce": true, "broth": true, "stock": true, "juice": true, "wine": true,
	"maple syrup": true,
}
