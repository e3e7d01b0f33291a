// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package recommend ranks recipes by how well a pantry covers them.

Ingredient and pantry names are compared after units.NormalizeIngredient,
either exactly or as whole words ("chicken" matches "chicken breast",
"egg" does not match "eggplant"). Staples such as salt and oil are never
missing. An ingredient whose quantity the pantry cannot cover is
insufficient and counts half.

	score = 100 * (matched + 0.5*insufficient) / required
	      + 10 per matched pantry item expiring soon (at most 30)

Expired items are ignored. Rank is pure; callers load the pantry and
recipes.
*/
package recommend
