// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package units

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danielhkuo/prepsense/models"
	"gopkg.in/yaml.v3"
)

// Converter converts ingredient quantities between units. Volume and count
// conversions to mass go through per-ingredient densities and unit weights.
// A Converter is safe for concurrent use.
type Converter struct {
	mu          sync.RWMutex
	densities   map[string]float64 // g per ml
	unitWeights map[string]float64 // g per each
	categories  map[string]string
}

// NewConverter returns a Converter loaded with the built-in tables
func NewConverter() *Converter {
	c := &Converter{
		densities:   make(map[string]float64, len(defaultDensities)),
		unitWeights: make(map[string]float64, len(defaultUnitWeights)),
		categories:  make(map[string]string, len(defaultCategories)),
	}
	for k, v := range defaultDensities {
		c.densities[k] = v
	}
	for k, v := range defaultUnitWeights {
		c.unitWeights[k] = v
	}
	for k, v := range defaultCategories {
		c.categories[k] = v
	}
	return c
}

// Convert converts qty of ingredient from one unit to another
func (c *Converter) Convert(qty float64, from, to, ingredient string) (float64, error) {
	if qty < 0 {
		return 0, ErrNegativeQuantity
	}
	fromUnit, err := NormalizeUnit(from)
	if err != nil {
		return 0, err
	}
	toUnit, err := NormalizeUnit(to)
	if err != nil {
		return 0, err
	}

	base := qty * fromUnit.Factor
	if fromUnit.Dimension == toUnit.Dimension {
		return base / toUnit.Factor, nil
	}

	grams, ok := c.toGrams(base, fromUnit.Dimension, ingredient)
	if !ok {
		return 0, fmt.Errorf("%w: %s to %s for %q", ErrIncompatibleUnits, fromUnit.Name, toUnit.Name, ingredient)
	}
	target, ok := c.fromGrams(grams, toUnit.Dimension, ingredient)
	if !ok {
		return 0, fmt.Errorf("%w: %s to %s for %q", ErrIncompatibleUnits, fromUnit.Name, toUnit.Name, ingredient)
	}
	return target / toUnit.Factor, nil
}

// CanConvert reports whether Convert would succeed for the pair
func (c *Converter) CanConvert(from, to, ingredient string) bool {
	_, err := c.Convert(1, from, to, ingredient)
	return err == nil
}

// ToGrams returns the mass of qty in grams when a mass path exists
func (c *Converter) ToGrams(qty float64, unit, ingredient string) (float64, error) {
	return c.Convert(qty, unit, Gram, ingredient)
}

// ToBase converts qty to grams when possible, otherwise to the base unit
// of its own dimension. The returned string is the unit used.
func (c *Converter) ToBase(qty float64, unit, ingredient string) (float64, string, error) {
	if qty < 0 {
		return 0, "", ErrNegativeQuantity
	}
	u, err := NormalizeUnit(unit)
	if err != nil {
		return 0, "", err
	}
	if grams, err := c.ToGrams(qty, unit, ingredient); err == nil {
		return grams, Gram, nil
	}
	switch u.Dimension {
	case Volume:
		return qty * u.Factor, Milliliter, nil
	default:
		return qty * u.Factor, Each, nil
	}
}

// SuggestUnit returns the unit an ingredient is most naturally stocked in
func (c *Converter) SuggestUnit(ingredient string) string {
	name := NormalizeIngredient(ingredient)
	category := c.Category(name)
	_, counted := c.UnitWeight(name)

	switch {
	case isLiquid(name):
		return Milliliter
	case counted && (category == "produce" || category == "dairy"):
		return Each
	}
	return Gram
}

func isLiquid(name string) bool {
	for _, key := range candidates(name) {
		if liquids[key] {
			return true
		}
	}
	return false
}

// Category returns the pantry category for a known ingredient, or "other"
func (c *Converter) Category(ingredient string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range candidates(NormalizeIngredient(ingredient)) {
		if cat, ok := c.categories[key]; ok {
			return cat
		}
	}
	return "other"
}

// Density returns the density in g/ml for an ingredient, if known
func (c *Converter) Density(ingredient string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(c.densities, ingredient)
}

// UnitWeight returns grams per piece for an ingredient, if known
func (c *Converter) UnitWeight(ingredient string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(c.unitWeights, ingredient)
}

type overrides struct {
	Densities   map[string]float64 `yaml:"densities"`
	UnitWeights map[string]float64 `yaml:"unit_weights"`
	Categories  map[string]string  `yaml:"categories"`
}

// LoadOverrides merges YAML tables over the current ones:
//
//	densities:
//	  tahini: 0.96
//	unit_weights:
//	  shallot: 30
//	categories:
//	  tahini: canned
func (c *Converter) LoadOverrides(r io.Reader) error {
	var o overrides
	if err := yaml.NewDecoder(r).Decode(&o); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse unit overrides: %w", err)
	}
	for name, v := range o.Densities {
		if v <= 0 {
			return fmt.Errorf("%w: density %s=%v", ErrInvalidOverrideVal, name, v)
		}
	}
	for name, v := range o.UnitWeights {
		if v <= 0 {
			return fmt.Errorf("%w: unit weight %s=%v", ErrInvalidOverrideVal, name, v)
		}
	}
	for name, v := range o.Categories {
		v = strings.ToLower(strings.TrimSpace(v))
		if !models.ValidCategory(v) {
			return fmt.Errorf("%w: %s=%q", ErrUnknownCategory, name, v)
		}
		o.Categories[name] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, v := range o.Densities {
		c.densities[NormalizeIngredient(name)] = v
	}
	for name, v := range o.UnitWeights {
		c.unitWeights[NormalizeIngredient(name)] = v
	}
	for name, v := range o.Categories {
		c.categories[NormalizeIngredient(name)] = v
	}
	return nil
}

func (c *Converter) toGrams(base float64, dim Dimension, ingredient string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch dim {
	case Mass:
		return base, true
	case Volume:
		d, ok := c.lookup(c.densities, ingredient)
		return base * d, ok
	case Count:
		w, ok := c.lookup(c.unitWeights, ingredient)
		return base * w, ok
	}
	return 0, false
}

func (c *Converter) fromGrams(grams float64, dim Dimension, ingredient string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch dim {
	case Mass:
		return grams, true
	case Volume:
		d, ok := c.lookup(c.densities, ingredient)
		if !ok {
			return 0, false
		}
		return grams / d, true
	case Count:
		w, ok := c.lookup(c.unitWeights, ingredient)
		if !ok {
			return 0, false
		}
		return grams / w, true
	}
	return 0, false
}

// lookup must be called with c.mu held
func (c *Converter) lookup(table map[string]float64, ingredient string) (float64, bool) {
	for _, key := range candidates(NormalizeIngredient(ingredient)) {
		if v, ok := table[key]; ok {
			return v, true
		}
	}
	return 0, false
}

// candidates yields the name and its suffixes with leading words dropped,
// so "unsalted butter" falls back to "butter".
func candidates(name string) []string {
	words := strings.Fields(name)
	out := make([]string, 0, len(words))
	for i := range words {
		out = append(out, strings.Join(words[i:], " "))
	}
	return out
}
