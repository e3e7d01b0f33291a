// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Inspect stored recipes",
}

var (
	flagRecipesQuery string
	flagRecipesLimit int
)

type recipeRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Cuisine  string `json:"cuisine"`
	Servings int    `json:"servings"`
	Minutes  int    `json:"total_minutes"`
	Source   string `json:"source"`
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes by title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, _, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		recipes, err := listRecipes(cmd.Context(), conn, flagRecipesQuery, flagRecipesLimit)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(recipes))
		for _, r := range recipes {
			rows = append(rows, []string{r.ID, r.Title, r.Cuisine, strconv.Itoa(r.Servings), strconv.Itoa(r.Minutes), r.Source})
		}
		return render(cmd.OutOrStdout(), recipes, []string{"ID", "Title", "Cuisine", "Servings", "Minutes", "Source"}, rows)
	},
}

// listRecipes returns recipes whose title contains q, case-insensitively
func listRecipes(ctx context.Context, db *sql.DB, q string, limit int) ([]recipeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(q))
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, cuisine, servings, prep_minutes + cook_minutes, source
		FROM recipes
		WHERE LOWER(title) LIKE '%' || $1::text || '%'
		ORDER BY title ASC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	out := []recipeRow{}
	for rows.Next() {
		var r recipeRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Cuisine, &r.Servings, &r.Minutes, &r.Source); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func init() {
	recipesListCmd.Flags().StringVar(&flagRecipesQuery, "q", "", "Title substring")
	recipesListCmd.Flags().IntVar(&flagRecipesLimit, "limit", 50, "Max rows")
	recipesCmd.AddCommand(recipesListCmd)
}
