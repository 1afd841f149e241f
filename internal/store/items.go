package store

import (
	"context"
	"fmt"

	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// ListItems returns every BillingItem ordered by SKU ascending.
func (s *Store) ListItems(ctx context.Context) ([]models.BillingItem, error) {
	rows, err := s.Pool.Query(ctx, `SELECT uuid, sku, name, unit FROM billing_items ORDER BY sku ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.BillingItem
	for rows.Next() {
		var it models.BillingItem
		if err := rows.Scan(&it.UUID, &it.SKU, &it.Name, &it.Unit); err != nil {
			return nil, fmt.Errorf("list items: scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItemBySKU returns the item with the given SKU, or ErrNotFound.
func (s *Store) GetItemBySKU(ctx context.Context, sku string) (models.BillingItem, error) {
	var it models.BillingItem
	err := s.Pool.QueryRow(ctx,
		`SELECT uuid, sku, name, unit FROM billing_items WHERE sku = $1`, sku,
	).Scan(&it.UUID, &it.SKU, &it.Name, &it.Unit)
	if err != nil {
		if isNoRows(err) {
			return models.BillingItem{}, ErrNotFound
		}
		return models.BillingItem{}, fmt.Errorf("get item %q: %w", sku, err)
	}
	return it, nil
}

// EnsureSKU inserts a stub item (empty name and unit) for sku if none
// exists. Safe under concurrent callers: the uniqueness of sku is enforced
// by the database, and a conflicting concurrent insert is swallowed.
func (s *Store) EnsureSKU(ctx context.Context, sku string) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO billing_items (uuid, sku, name, unit) VALUES ($1, $2, '', '')
		 ON CONFLICT (sku) DO NOTHING`,
		uuid.New(), sku,
	)
	if err != nil {
		return fmt.Errorf("ensure sku %q: %w", sku, err)
	}
	return nil
}

// UpsertItem inserts item if it does not exist, else updates its name and
// unit to the supplied values.
func (s *Store) UpsertItem(ctx context.Context, sku, name, unit string) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO billing_items (uuid, sku, name, unit) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, unit = EXCLUDED.unit`,
		uuid.New(), sku, name, unit,
	)
	if err != nil {
		return fmt.Errorf("upsert item %q: %w", sku, err)
	}
	return nil
}
