// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package units

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/prepsense/models"
)

var vulgarFractions = map[rune]float64{
	'½': 0.5,
	'¼': 0.25,
	'¾': 0.75,
	'⅓': 1.0 / 3,
	'⅔': 2.0 / 3,
	'⅛': 0.125,
	'⅜': 0.375,
	'⅝': 0.625,
	'⅞': 0.875,
}

// ParseIngredientLine parses a recipe line such as "2 1/2 cups flour, sifted".
// Quantities may be integers, decimals, fractions, mixed numbers, unicode
// fractions or ranges ("2-3", "2 to 3"; the upper bound is used). Text after
// the first comma and parenthetical text become the note. A line without a
// quantity ("salt to taste") has quantity 0.
func ParseIngredientLine(line string) (models.Ingredient, error) {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*•· \t")
	if s == "" {
		return models.Ingredient{}, fmt.Errorf("%w: empty line", ErrInvalidIngredient)
	}

	var notes []string
	if i := strings.Index(s, ","); i >= 0 {
		notes = append(notes, strings.TrimSpace(s[i+1:]))
		s = s[:i]
	}
	for _, p := range parenthetical.FindAllString(s, -1) {
		notes = append(notes, strings.Trim(p, "() "))
	}
	s = parenthetical.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	qty, used := parseQuantity(tokens)
	tokens = tokens[used:]

	unit := ""
	if len(tokens) > 1 {
		if two := tokens[0] + " " + tokens[1]; IsUnit(two) {
			unit = CanonicalUnit(two)
			tokens = tokens[2:]
		}
	}
	if unit == "" && len(tokens) > 1 && IsUnit(tokens[0]) {
		unit = CanonicalUnit(tokens[0])
		tokens = tokens[1:]
	}
	if unit == "" && used > 0 {
		unit = Each
	}
	// "of" as in "2 cups of milk"
	if len(tokens) > 1 && strings.EqualFold(tokens[0], "of") {
		tokens = tokens[1:]
	}

	name := strings.Join(tokens, " ")
	if lower := strings.ToLower(name); strings.HasSuffix(lower, " to taste") {
		name = strings.TrimSpace(name[:len(name)-len(" to taste")])
		notes = append(notes, "to taste")
	}
	if name == "" {
		return models.Ingredient{}, fmt.Errorf("%w: no ingredient name in %q", ErrInvalidIngredient, line)
	}

	nonEmpty := notes[:0]
	for _, n := range notes {
		if n != "" {
			nonEmpty = append(nonEmpty, n)
		}
	}

	return models.Ingredient{
		Name:     name,
		Quantity: qty,
		Unit:     unit,
		Note:     strings.Join(nonEmpty, "; "),
	}, nil
}

// parseQuantity reads a leading quantity and returns it with the number of
// tokens consumed.
func parseQuantity(tokens []string) (float64, int) {
	if len(tokens) == 0 {
		return 0, 0
	}

	first, ok := parseNumber(tokens[0])
	if !ok {
		// Ranges written without spaces: "2-3"
		if lo, hi, found := strings.Cut(strings.ReplaceAll(tokens[0], "–", "-"), "-"); found {
			if _, okLo := parseNumber(lo); okLo {
				if v, okHi := parseNumber(hi); okHi {
					return v, 1
				}
			}
		}
		return 0, 0
	}
	used := 1

	if len(tokens) > used {
		// Mixed number: "2 1/2" or "1 ½"
		if frac, ok := parseNumber(tokens[used]); ok && frac < 1 && isFraction(tokens[used]) {
			first += frac
			used++
		}
	}

	if len(tokens) > used+1 && (tokens[used] == "to" || tokens[used] == "-" || tokens[used] == "–") {
		if hi, ok := parseNumber(tokens[used+1]); ok {
			return hi, used + 2
		}
	}
	return first, used
}

func isFraction(tok string) bool {
	if strings.Contains(tok, "/") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(tok)
	_, ok := vulgarFractions[r]
	return ok
}

func parseNumber(tok string) (float64, bool) {
	if tok == "" {
		return 0, false
	}
	if c := tok[0]; (c < '0' || c > '9') && c != '.' {
		r, _ := utf8.DecodeRuneInString(tok)
		if _, ok := vulgarFractions[r]; !ok {
			return 0, false
		}
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v, true
	}
	if num, den, found := strings.Cut(tok, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 || n < 0 || d < 0 {
			return 0, false
		}
		return n / d, true
	}

	// Unicode fractions, optionally after a whole number: "½", "1½"
	last, size := utf8.DecodeLastRuneInString(tok)
	frac, ok := vulgarFractions[last]
	if !ok {
		return 0, false
	}
	whole := tok[:len(tok)-size]
	if whole == "" {
		return frac, true
	}
	w, err := strconv.ParseFloat(whole, 64)
	if err != nil || w < 0 {
		return 0, false
	}
	return w + frac, true
}
