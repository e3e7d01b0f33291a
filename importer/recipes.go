// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/danielhkuo/prepsense/auth"
	"github.com/danielhkuo/prepsense/instructions"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/units"
)

// SourceImport marks recipes loaded from CSV
const SourceImport = "import"

// RowError reports a CSV row that could not be imported
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ImportResult counts what ImportRecipes did
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

var recipeColumns = []string{
	"title", "description", "cuisine", "servings", "prep_minutes",
	"cook_minutes", "ingredients", "instructions", "tags",
}

// ParseRecipeCSV reads recipes from CSV. The header row names the columns
// (any order, case-insensitive); only title is required. Rows that fail
// to parse are reported and skipped. A malformed file returns a single
// RowError for the line where reading stopped.
func ParseRecipeCSV(r io.Reader) ([]models.Recipe, []RowError) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, []RowError{{Line: 1, Err: fmt.Errorf("read header: %w", err)}}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, []RowError{{Line: 1, Err: errors.New("missing title column")}}
	}

	var (
		recipes []models.Recipe
		rowErrs []RowError
		seen    = map[string]int{}
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			break
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		recipe, err := recipeFromRow(field)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		key := strings.ToLower(recipe.Title)
		if first, dup := seen[key]; dup {
			rowErrs = append(rowErrs, RowError{Line: line, Err: fmt.Errorf("duplicate title %q (first on line %d)", recipe.Title, first)})
			continue
		}
		seen[key] = line
		recipes = append(recipes, recipe)
	}
	return recipes, rowErrs
}

func recipeFromRow(field func(string) string) (models.Recipe, error) {
	r := models.Recipe{
		Title:       field("title"),
		Description: field("description"),
		Cuisine:     strings.ToLower(field("cuisine")),
		Source:      SourceImport,
	}
	if r.Title == "" {
		return r, errors.New("title is required")
	}

	var err error
	if r.Servings, err = intField(field("servings"), 1); err != nil {
		return r, fmt.Errorf("servings: %w", err)
	}
	if r.Servings < 1 {
		return r, errors.New("servings must be at least 1")
	}
	if r.PrepMinutes, err = intField(field("prep_minutes"), 0); err != nil {
		return r, fmt.Errorf("prep_minutes: %w", err)
	}
	if r.CookMinutes, err = intField(field("cook_minutes"), 0); err != nil {
		return r, fmt.Errorf("cook_minutes: %w", err)
	}
	if r.PrepMinutes < 0 || r.CookMinutes < 0 {
		return r, errors.New("minutes cannot be negative")
	}

	for _, line := range splitAny(field("ingredients"), ";\n") {
		ing, err := units.ParseIngredientLine(line)
		if err != nil {
			return r, fmt.Errorf("ingredient %q: %w", line, err)
		}
		r.Ingredients = append(r.Ingredients, ing)
	}
	if len(r.Ingredients) == 0 {
		return r, errors.New("at least one ingredient is required")
	}

	steps := field("instructions")
	if strings.Contains(steps, "|") {
		r.Instructions = splitAny(steps, "|")
	} else {
		r.Instructions = instructions.SplitSteps(steps)
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}

	r.Tags = []string{}
	for _, tag := range splitAny(field("tags"), ",") {
		r.Tags = append(r.Tags, strings.ToLower(tag))
	}
	return r, nil
}

func intField(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// splitAny splits s on any of seps, trimming and dropping empty parts
func splitAny(s, seps string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

const upsertRecipe = `
	INSERT INTO recipes (id, title, description, cuisine, servings, prep_minutes,
		cook_minutes, ingredients, instructions, tags, source, source_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (title) DO UPDATE SET
		description = EXCLUDED.description,
		cuisine = EXCLUDED.cuisine,
		servings = EXCLUDED.servings,
		prep_minutes = EXCLUDED.prep_minutes,
		cook_minutes = EXCLUDED.cook_minutes,
		ingredients = EXCLUDED.ingredients,
		instructions = EXCLUDED.instructions,
		tags = EXCLUDED.tags,
		updated_at = NOW()
	WHERE (recipes.description, recipes.cuisine, recipes.servings, recipes.prep_minutes,
		recipes.cook_minutes, recipes.ingredients, recipes.instructions, recipes.tags)
		IS DISTINCT FROM
		(EXCLUDED.description, EXCLUDED.cuisine, EXCLUDED.servings, EXCLUDED.prep_minutes,
		EXCLUDED.cook_minutes, EXCLUDED.ingredients, EXCLUDED.instructions, EXCLUDED.tags)
	RETURNING (xmax = 0) AS inserted
`

// ImportRecipes upserts recipes by title in one transaction. Existing
// recipes with identical content are skipped.
func ImportRecipes(ctx context.Context, db *sql.DB, recipes []models.Recipe) (ImportResult, error) {
	var res ImportResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRecipe)
	if err != nil {
		return res, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recipes {
		args, err := recipeArgs(r)
		if err != nil {
			return res, err
		}

		var inserted bool
		err = stmt.QueryRowContext(ctx, args...).Scan(&inserted)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("failed to upsert recipe %q: %w", r.Title, err)
		case inserted:
			res.Inserted++
		default:
			res.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit import: %w", err)
	}

	slog.Info("recipes imported",
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
	)
	return res, nil
}

func recipeArgs(r models.Recipe) ([]any, error) {
	if r.ID == "" {
		id, err := auth.GenerateID(16)
		if err != nil {
			return nil, fmt.Errorf("failed to generate recipe id: %w", err)
		}
		r.ID = id
	}
	if r.Source == "" {
		r.Source = SourceImport
	}
	if r.Servings < 1 {
		r.Servings = 1
	}

	ingredients, err := marshalList(r.Ingredients)
	if err != nil {
		return nil, err
	}
	steps, err := marshalList(r.Instructions)
	if err != nil {
		return nil, err
	}
	tags, err := marshalList(r.Tags)
	if err != nil {
		return nil, err
	}

	return []any{
		r.ID, r.Title, r.Description, r.Cuisine, r.Servings, r.PrepMinutes,
		r.CookMinutes, ingredients, steps, tags, r.Source, r.SourceID,
	}, nil
}

// marshalList encodes a slice as a JSON array, never null
func marshalList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return string(b), nil
}
