// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package recommend

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

const (
	DefaultExpiringWithin   = 3 * 24 * time.Hour
	DefaultExpiringBonus    = 10.0
	DefaultMaxExpiringBonus = 30.0
)

// Staples are assumed to be in every kitchen
var Staples = map[string]bool{
	"salt":          true,
	"pepper":        true,
	"black pepper":  true,
	"water":         true,
	"oil":           true,
	"olive oil":     true,
	"vegetable oil": true,
	"canola oil":    true,
}

// stapleQualifiers may precede a staple without changing what it is.
// "sea salt" is salt; "celery salt" and "bell pepper" are not.
var stapleQualifiers = map[string]bool{
	"kosher": true, "sea": true, "table": true, "flaky": true, "fine": true,
	"coarse": true, "iodized": true, "ground": true, "cracked": true,
	"whole": true, "extra-virgin": true, "light": true, "pure": true,
	"neutral": true, "hot": true, "boiling": true, "lukewarm": true,
	"ice": true, "iced": true, "filtered": true, "tap": true,
}

// IsStaple reports whether an ingredient name is a staple once leading
// qualifiers are dropped, so "kosher salt" and "freshly ground black
// pepper" count while "sesame oil" does not. "salt and pepper" is a
// staple because both halves are.
func IsStaple(name string) bool {
	n := units.NormalizeIngredient(name)
	if n == "" {
		return false
	}
	for _, part := range strings.Split(n, " and ") {
		words := strings.Fields(part)
		for len(words) > 0 && stapleQualifiers[words[0]] {
			words = words[1:]
		}
		if !Staples[strings.Join(words, " ")] {
			return false
		}
	}
	return true
}

// Options tunes ranking. Zero values take the defaults.
type Options struct {
	Limit            int
	MinScore         float64
	ExpiringWithin   time.Duration
	ExpiringBonus    float64
	MaxExpiringBonus float64
	Converter        *units.Converter
}

func (o Options) withDefaults() Options {
	if o.ExpiringWithin <= 0 {
		o.ExpiringWithin = DefaultExpiringWithin
	}
	if o.ExpiringBonus <= 0 {
		o.ExpiringBonus = DefaultExpiringBonus
	}
	if o.MaxExpiringBonus <= 0 {
		o.MaxExpiringBonus = DefaultMaxExpiringBonus
	}
	if o.Converter == nil {
		o.Converter = units.NewConverter()
	}
	return o
}

// Rank scores every recipe against the pantry and returns matches ordered
// by score (desc), missing ingredient count (asc), then title.
func Rank(pantry []models.PantryItem, recipes []models.Recipe, now time.Time, opts Options) []models.RecipeMatch {
	opts = opts.withDefaults()
	stock := newStock(pantry, now, opts.ExpiringWithin)

	matches := make([]models.RecipeMatch, 0, len(recipes))
	for _, r := range recipes {
		m := stock.evaluate(r, opts)
		if m.Score < opts.MinScore {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Missing) != len(b.Missing) {
			return len(a.Missing) < len(b.Missing)
		}
		return a.Title < b.Title
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches
}

// Evaluate scores a single recipe against the pantry
func Evaluate(pantry []models.PantryItem, recipe models.Recipe, now time.Time, opts Options) models.RecipeMatch {
	opts = opts.withDefaults()
	return newStock(pantry, now, opts.ExpiringWithin).evaluate(recipe, opts)
}

type stockItem struct {
	item     models.PantryItem
	name     string
	expiring bool
}

// stock is the usable part of a pantry, with normalized names
type stock struct {
	items []stockItem
}

func newStock(pantry []models.PantryItem, now time.Time, within time.Duration) *stock {
	today := dateOf(now)
	horizon := today.Add(within)

	s := &stock{}
	for _, p := range pantry {
		if p.Quantity <= 0 {
			continue
		}
		expiring := false
		if p.ExpirationDate != nil {
			exp := dateOf(*p.ExpirationDate)
			if exp.Before(today) {
				continue
			}
			expiring = !exp.After(horizon)
		}
		s.items = append(s.items, stockItem{
			item:     p,
			name:     units.NormalizeIngredient(p.Name),
			expiring: expiring,
		})
	}
	return s
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// find returns the pantry items matching name, best first: exact matches,
// then those expiring soonest.
func (s *stock) find(name string) []stockItem {
	var exact, partial []stockItem
	for _, si := range s.items {
		switch {
		case si.name == name:
			exact = append(exact, si)
		case containsWord(si.name, name) || containsWord(name, si.name):
			partial = append(partial, si)
		}
	}
	byExpiry := func(list []stockItem) {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].item.ExpirationDate, list[j].item.ExpirationDate
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.Before(*b)
		})
	}
	byExpiry(exact)
	byExpiry(partial)
	return append(exact, partial...)
}

// NameMatches reports whether a recipe ingredient and a pantry item name
// refer to the same thing. Both names are normalized first.
func NameMatches(ingredient, pantryName string) bool {
	a, b := units.NormalizeIngredient(ingredient), units.NormalizeIngredient(pantryName)
	if a == "" || b == "" {
		return false
	}
	return a == b || containsWord(a, b) || containsWord(b, a)
}

// containsWord reports whether phrase occurs in s on word boundaries
func containsWord(s, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func (s *stock) evaluate(r models.Recipe, opts Options) models.RecipeMatch {
	m := models.RecipeMatch{
		RecipeID:     r.ID,
		Title:        r.Title,
		Matched:      []models.IngredientMatch{},
		Insufficient: []models.IngredientMatch{},
		Missing:      []models.Ingredient{},
		ExpiringUsed: []string{},
	}

	required := 0
	expiringSeen := map[string]bool{}
	for _, ing := range r.Ingredients {
		name := units.NormalizeIngredient(ing.Name)
		if name == "" || IsStaple(name) {
			continue
		}
		required++

		found := s.find(name)
		if len(found) == 0 {
			m.Missing = append(m.Missing, ing)
			continue
		}

		best := found[0]
		im := models.IngredientMatch{
			Ingredient:   ing,
			PantryItemID: best.item.ID,
			PantryName:   best.item.Name,
			Expiring:     best.expiring,
		}
		if shortfall, ok := shortfallOf(ing, name, found, opts.Converter); ok && shortfall > 0 {
			im.Shortfall = round(shortfall, 3)
			m.Insufficient = append(m.Insufficient, im)
		} else {
			m.Matched = append(m.Matched, im)
		}

		for _, si := range found {
			if si.expiring && !expiringSeen[si.item.ID] {
				expiringSeen[si.item.ID] = true
				m.ExpiringUsed = append(m.ExpiringUsed, si.item.Name)
			}
		}
	}

	if required == 0 {
		m.Score = 100
	} else {
		base := 100 * (float64(len(m.Matched)) + 0.5*float64(len(m.Insufficient))) / float64(required)
		m.Score = base
	}
	bonus := math.Min(float64(len(m.ExpiringUsed))*opts.ExpiringBonus, opts.MaxExpiringBonus)
	m.Score = round(m.Score+bonus, 2)
	m.CanMake = len(m.Missing) == 0 && len(m.Insufficient) == 0
	return m
}

// shortfallOf compares the required quantity with everything in stock that
// matches, in the ingredient's unit. ok is false when the amounts cannot
// be compared (no quantity, or units that do not convert).
func shortfallOf(ing models.Ingredient, name string, found []stockItem, conv *units.Converter) (float64, bool) {
	if ing.Quantity <= 0 {
		return 0, false
	}
	have := 0.0
	for _, si := range found {
		q, err := conv.Convert(si.item.Quantity, si.item.Unit, ing.Unit, name)
		if err != nil {
			return 0, false
		}
		have += q
	}
	// Tolerate float noise from conversions
	if have >= ing.Quantity*(1-1e-9) {
		return 0, true
	}
	return ing.Quantity - have, true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
