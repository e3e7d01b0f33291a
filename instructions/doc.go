// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package instructions turns recipe instructions into numbered, grouped steps.

Steps are bucketed into the phases prep, cook and finish by keyword. A
step takes the phase of the earliest keyword it contains and never an
earlier phase than the step before it, so every group is a contiguous run:

	groups := instructions.ParseToGroups(recipe.Instructions, 3)

Free text is split first with SplitSteps, or in one call with ParseText.
*/
package instructions
