// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package units

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownUnit        = errors.New("unknown unit")
	ErrIncompatibleUnits  = errors.New("incompatible units")
	ErrNegativeQuantity   = errors.New("quantity must not be negative")
	ErrInvalidIngredient  = errors.New("invalid ingredient line")
	ErrInvalidOverrideVal = errors.New("override values must be positive")
	ErrUnknownCategory    = errors.New("unknown pantry category")
)

// Dimension groups units that convert by a constant factor
type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Count  Dimension = "count"
)

// Unit is a canonical unit. Factor converts one of this unit to the base
// unit of its dimension (g, ml, each).
type Unit struct {
	Name      string
	Dimension Dimension
	Factor    float64
}

// Canonical unit names
const (
	Gram       = "g"
	Kilogram   = "kg"
	Milligram  = "mg"
	Ounce      = "oz"
	Pound      = "lb"
	Milliliter = "ml"
	Liter      = "l"
	Teaspoon   = "tsp"
	Tablespoon = "tbsp"
	Cup        = "cup"
	FluidOunce = "fl oz"
	Pint       = "pint"
	Quart      = "quart"
	Gallon     = "gallon"
	Each       = "each"
)

var canonical = map[string]Unit{
	Gram:       {Gram, Mass, 1},
	Kilogram:   {Kilogram, Mass, 1000},
	Milligram:  {Milligram, Mass, 0.001},
	Ounce:      {Ounce, Mass, 28.349523125},
	Pound:      {Pound, Mass, 453.59237},
	Milliliter: {Milliliter, Volume, 1},
	Liter:      {Liter, Volume, 1000},
	Teaspoon:   {Teaspoon, Volume, 4.92892159375},
	Tablespoon: {Tablespoon, Volume, 14.78676478125},
	Cup:        {Cup, Volume, 236.5882365},
	FluidOunce: {FluidOunce, Volume, 29.5735295625},
	Pint:       {Pint, Volume, 473.176473},
	Quart:      {Quart, Volume, 946.352946},
	Gallon:     {Gallon, Volume, 3785.411784},
	Each:       {Each, Count, 1},
}

var aliases = map[string]string{
	"g": Gram, "gram": Gram, "grams": Gram, "gr": Gram, "gm": Gram, "gms": Gram,
	"kg": Kilogram, "kgs": Kilogram, "kilo": Kilogram, "kilos": Kilogram, "kilogram": Kilogram, "kilograms": Kilogram,
	"mg": Milligram, "milligram": Milligram, "milligrams": Milligram,
	"oz": Ounce, "ounce": Ounce, "ounces": Ounce,
	"lb": Pound, "lbs": Pound, "pound": Pound, "pounds": Pound,
	"ml": Milliliter, "mls": Milliliter, "milliliter": Milliliter, "milliliters": Milliliter,
	"millilitre": Milliliter, "millilitres": Milliliter, "cc": Milliliter,
	"l": Liter, "liter": Liter, "liters": Liter, "litre": Liter, "litres": Liter,
	"tsp": Teaspoon, "tsps": Teaspoon, "teaspoon": Teaspoon, "teaspoons": Teaspoon,
	"tbsp": Tablespoon, "tbsps": Tablespoon, "tbs": Tablespoon, "tbl": Tablespoon,
	"tablespoon": Tablespoon, "tablespoons": Tablespoon,
	"cup": Cup, "cups": Cup, "c": Cup,
	"fl oz": FluidOunce, "floz": FluidOunce, "fl. oz": FluidOunce,
	"fluid ounce": FluidOunce, "fluid ounces": FluidOunce,
	"pint": Pint, "pints": Pint, "pt": Pint,
	"quart": Quart, "quarts": Quart, "qt": Quart,
	"gallon": Gallon, "gallons": Gallon, "gal": Gallon,
	"each": Each, "ea": Each, "piece": Each, "pieces": Each, "pc": Each, "pcs": Each,
	"whole": Each, "unit": Each, "units": Each, "item": Each, "items": Each,
	"clove": Each, "cloves": Each, "slice": Each, "slices": Each,
	"can": Each, "cans": Each, "package": Each, "packages": Each, "pkg": Each,
	"bunch": Each, "bunches": Each, "head": Each, "heads": Each,
	"stalk": Each, "stalks": Each, "sprig": Each, "sprigs": Each,
	"large": Each, "medium": Each, "small": Each,
}

// NormalizeUnit maps a free-form unit string to its canonical Unit.
// An empty string means a plain count.
func NormalizeUnit(s string) (Unit, error) {
	trimmed := strings.TrimSpace(s)
	// Recipe shorthand: capital T is a tablespoon, lower-case t a teaspoon.
	switch strings.TrimSuffix(trimmed, ".") {
	case "T", "Tb", "Tbs":
		return canonical[Tablespoon], nil
	case "t":
		return canonical[Teaspoon], nil
	case "":
		return canonical[Each], nil
	}

	key := strings.ToLower(trimmed)
	key = strings.Join(strings.Fields(key), " ")
	if name, ok := aliases[key]; ok {
		return canonical[name], nil
	}
	if name, ok := aliases[strings.TrimSuffix(key, ".")]; ok {
		return canonical[name], nil
	}
	return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// IsUnit reports whether s names a known unit
func IsUnit(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	_, err := NormalizeUnit(s)
	return err == nil
}

// CanonicalUnit returns the canonical name for s, or s unchanged when unknown
func CanonicalUnit(s string) string {
	u, err := NormalizeUnit(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return u.Name
}
