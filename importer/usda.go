// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/prepsense/models"
)

// FoodData Central CSV file names
const (
	FoodFile         = "food.csv"
	NutrientFile     = "nutrient.csv"
	FoodNutrientFile = "food_nutrient.csv"
	FoodCategoryFile = "food_category.csv"
)

// FoodNutrient is one row of food_nutrient.csv: amount per 100 g
type FoodNutrient struct {
	FDCID      int
	NutrientID int
	Amount     float64
}

// USDAData is the parsed content of a FoodData Central export
type USDAData struct {
	Foods         []models.USDAFood
	Nutrients     []models.Nutrient
	FoodNutrients []FoodNutrient
	Skipped       int // rows dropped for missing or malformed values
}

// csvTable reads a CSV with a header row and gives access by column name
type csvTable struct {
	r    *csv.Reader
	cols map[string]int
	rec  []string
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return &csvTable{r: cr, cols: cols}, nil
}

// next advances to the next row; it returns io.EOF at the end
func (t *csvTable) next() error {
	rec, err := t.r.Read()
	if err != nil {
		return err
	}
	t.rec = rec
	return nil
}

func (t *csvTable) str(name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(t.rec) {
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *csvTable) intVal(name string) (int, bool) {
	n, err := strconv.Atoi(t.str(name))
	return n, err == nil
}

func (t *csvTable) floatVal(name string) (float64, bool) {
	f, err := strconv.ParseFloat(t.str(name), 64)
	return f, err == nil
}

// ParseUSDAFoods parses food.csv. categories maps food_category_id to a
// description and may be nil, in which case the raw id is kept.
func ParseUSDAFoods(r io.Reader, categories map[string]string) ([]models.USDAFood, int, error) {
	t, err := newCSVTable(r, "fdc_id", "description")
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", FoodFile, err)
	}

	var (
		foods   []models.USDAFood
		skipped int
	)
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, skipped, fmt.Errorf("%s: %w", FoodFile, err)
		}

		id, ok := t.intVal("fdc_id")
		desc := t.str("description")
		if !ok || desc == "" {
			skipped++
			continue
		}
		category := t.str("food_category_id")
		if name, ok := categories[category]; ok {
			category = name
		}
		foods = append(foods, models.USDAFood{
			FDCID:           id,
			Description:     desc,
			DataType:        t.str("data_type"),
			FoodCategory:    category,
			PublicationDate: t.str("publication_date"),
		})
	}
	return foods, skipped, nil
}

// ParseUSDANutrients parses nutrient.csv
func ParseUSDANutrients(r io.Reader) ([]models.Nutrient, int, error) {
	t, err := newCSVTable(r, "id", "name", "unit_name")
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", NutrientFile, err)
	}

	var (
		nutrients []models.Nutrient
		skipped   int
	)
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, skipped, fmt.Errorf("%s: %w", NutrientFile, err)
		}

		id, ok := t.intVal("id")
		name := t.str("name")
		if !ok || name == "" {
			skipped++
			continue
		}
		nutrients = append(nutrients, models.Nutrient{
			ID:       id,
			Name:     name,
			UnitName: t.str("unit_name"),
			Number:   t.str("nutrient_nbr"),
		})
	}
	return nutrients, skipped, nil
}

// ParseUSDAFoodNutrients parses food_nutrient.csv
func ParseUSDAFoodNutrients(r io.Reader) ([]FoodNutrient, int, error) {
	t, err := newCSVTable(r, "fdc_id", "nutrient_id", "amount")
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", FoodNutrientFile, err)
	}

	var (
		rows    []FoodNutrient
		skipped int
	)
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, skipped, fmt.Errorf("%s: %w", FoodNutrientFile, err)
		}

		fdcID, ok1 := t.intVal("fdc_id")
		nutrientID, ok2 := t.intVal("nutrient_id")
		amount, ok3 := t.floatVal("amount")
		if !ok1 || !ok2 || !ok3 {
			skipped++
			continue
		}
		rows = append(rows, FoodNutrient{FDCID: fdcID, NutrientID: nutrientID, Amount: amount})
	}
	return rows, skipped, nil
}

// parseCategories reads food_category.csv into id -> description
func parseCategories(r io.Reader) (map[string]string, error) {
	t, err := newCSVTable(r, "id", "description")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FoodCategoryFile, err)
	}
	categories := map[string]string{}
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", FoodCategoryFile, err)
		}
		categories[t.str("id")] = t.str("description")
	}
	return categories, nil
}

// ReadUSDADir parses a FoodData Central CSV export directory. The three
// main files are parsed concurrently; food_category.csv is optional.
func ReadUSDADir(ctx context.Context, dir string) (*USDAData, error) {
	categories := map[string]string{}
	if f, err := os.Open(filepath.Join(dir, FoodCategoryFile)); err == nil {
		categories, err = parseCategories(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var (
		data                        USDAData
		foodSkip, nutSkip, linkSkip int
	)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return withFile(ctx, dir, FoodFile, func(r io.Reader) (err error) {
			data.Foods, foodSkip, err = ParseUSDAFoods(r, categories)
			return err
		})
	})
	g.Go(func() error {
		return withFile(ctx, dir, NutrientFile, func(r io.Reader) (err error) {
			data.Nutrients, nutSkip, err = ParseUSDANutrients(r)
			return err
		})
	})
	g.Go(func() error {
		return withFile(ctx, dir, FoodNutrientFile, func(r io.Reader) (err error) {
			data.FoodNutrients, linkSkip, err = ParseUSDAFoodNutrients(r)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	data.Skipped = foodSkip + nutSkip + linkSkip

	slog.Info("usda files parsed",
		"dir", dir,
		"foods", len(data.Foods),
		"nutrients", len(data.Nutrients),
		"food_nutrients", len(data.FoodNutrients),
		"skipped", data.Skipped,
	)
	return &data, nil
}

func withFile(ctx context.Context, dir, name string, fn func(io.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return fn(f)
}
