// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/prepsense/models"
)

var pantryCmd = &cobra.Command{
	Use:   "pantry",
	Short: "Inspect pantry contents",
}

var flagPantryUser string

var pantryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's pantry, soonest expiry first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPantryUser == "" {
			return errors.New("--user is required")
		}
		conn, _, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		items, err := listPantry(cmd.Context(), conn, flagPantryUser)
		if err != nil {
			return err
		}

		now := time.Now()
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{it.ID, it.Name, quantityText(it.Quantity, it.Unit), it.Category, expiryText(it.ExpirationDate, now)})
		}
		return render(cmd.OutOrStdout(), items, []string{"ID", "Name", "Quantity", "Category", "Expires"}, rows)
	},
}

func listPantry(ctx context.Context, db *sql.DB, userID string) ([]models.PantryItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, product_id, name, quantity, unit, category, expiration_date, price_paid, created_at, updated_at
		FROM pantry_items
		WHERE user_id = $1
		ORDER BY expiration_date ASC NULLS LAST, name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pantry: %w", err)
	}
	defer rows.Close()

	items := []models.PantryItem{}
	for rows.Next() {
		var it models.PantryItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Name, &it.Quantity, &it.Unit,
			&it.Category, &it.ExpirationDate, &it.PricePaid, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func init() {
	pantryListCmd.Flags().StringVar(&flagPantryUser, "user", "", "User ID (required)")
	pantryCmd.AddCommand(pantryListCmd)
}
