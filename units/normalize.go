// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package units

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Preparation and size words that do not change what the ingredient is
var descriptors = map[string]bool{
	"chopped": true, "diced": true, "minced": true, "sliced": true, "fresh": true,
	"freshly": true, "frozen": true, "large": true, "small": true, "medium": true,
	"finely": true, "roughly": true, "coarsely": true, "thinly": true, "grated": true,
	"shredded": true, "peeled": true, "crushed": true, "boneless": true, "skinless": true,
	"ripe": true, "organic": true, "softened": true, "melted": true, "cold": true,
	"warm": true, "packed": true, "lightly": true, "beaten": true, "cubed": true,
	"halved": true, "quartered": true, "trimmed": true, "rinsed": true, "drained": true,
	"divided": true, "optional": true, "extra": true, "virgin": true, "unsalted": true,
	"salted": true, "plain": true, "all-purpose": true, "uncooked": true, "cooked": true,
}

var irregularPlurals = map[string]string{
	"leaves":    "leaf",
	"loaves":    "loaf",
	"halves":    "half",
	"knives":    "knife",
	"cloves":    "clove",
	"olives":    "olive",
	"chives":    "chive",
	"anchovies": "anchovy",
}

// Words ending in s that are not plurals
var notPlural = map[string]bool{
	"asparagus": true, "hummus": true, "couscous": true, "molasses": true,
	"swiss": true, "citrus": true, "grits": true, "hibiscus": true, "bass": true,
	"lemongrass": true, "watercress": true, "series": true, "species": true,
}

// NormalizeIngredient reduces an ingredient name to a lookup key:
// lower-case, no parentheticals or trailing notes, no preparation words,
// last word singular.
func NormalizeIngredient(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = parenthetical.ReplaceAllString(s, " ")
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".;:*")
		if w == "" || descriptors[w] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}
	kept[len(kept)-1] = Singular(kept[len(kept)-1])
	return strings.Join(kept, " ")
}

// Singular applies simple English singularisation rules to one word
func Singular(w string) string {
	if irr, ok := irregularPlurals[w]; ok {
		return irr
	}
	if notPlural[w] || len(w) < 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "xes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// DisplayName formats an ingredient name for display ("green onion" -> "Green Onion")
func DisplayName(name string) string {
	// Casers keep state and must not be shared across goroutines.
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}
