package store

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// CurrentPrices returns, for every item, the price whose window strictly
// contains at (inclusive lower bound, exclusive upper bound; an open
// valid_until is treated as +infinity), ordered by SKU then valid_from.
func (s *Store) CurrentPrices(ctx context.Context, at time.Time) ([]models.BillingItemPriceWithSKU, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT p.uuid, p.item_id, p.price, p.valid_from, p.valid_until, p.configured_at, i.sku
		FROM billing_item_prices p
		JOIN billing_items i ON i.uuid = p.item_id
		WHERE p.valid_from <= $1 AND (p.valid_until IS NULL OR $1 < p.valid_until)
		ORDER BY i.sku ASC, p.valid_from ASC`, at)
	if err != nil {
		return nil, fmt.Errorf("current prices: %w", err)
	}
	defer rows.Close()

	var out []models.BillingItemPriceWithSKU
	for rows.Next() {
		var p models.BillingItemPriceWithSKU
		if err := rows.Scan(&p.UUID, &p.ItemID, &p.Price, &p.ValidFrom, &p.ValidUntil, &p.ConfiguredAt, &p.SKU); err != nil {
			return nil, fmt.Errorf("current prices: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindPriceAt returns the price row for item with valid_from exactly
// matching validFrom, or ErrNotFound.
func (s *Store) FindPriceAt(ctx context.Context, itemID uuid.UUID, validFrom time.Time) (models.BillingItemPrice, error) {
	var p models.BillingItemPrice
	err := s.Pool.QueryRow(ctx,
		`SELECT uuid, item_id, price, valid_from, valid_until, configured_at
		 FROM billing_item_prices WHERE item_id = $1 AND valid_from = $2`,
		itemID, validFrom,
	).Scan(&p.UUID, &p.ItemID, &p.Price, &p.ValidFrom, &p.ValidUntil, &p.ConfiguredAt)
	if err != nil {
		if isNoRows(err) {
			return models.BillingItemPrice{}, ErrNotFound
		}
		return models.BillingItemPrice{}, fmt.Errorf("find price at: %w", err)
	}
	return p, nil
}

// LatestPrice returns the price row for item with the greatest valid_from,
// or ErrNotFound if the item has no prices yet.
func (s *Store) LatestPrice(ctx context.Context, itemID uuid.UUID) (models.BillingItemPrice, error) {
	var p models.BillingItemPrice
	err := s.Pool.QueryRow(ctx,
		`SELECT uuid, item_id, price, valid_from, valid_until, configured_at
		 FROM billing_item_prices WHERE item_id = $1 ORDER BY valid_from DESC LIMIT 1`,
		itemID,
	).Scan(&p.UUID, &p.ItemID, &p.Price, &p.ValidFrom, &p.ValidUntil, &p.ConfiguredAt)
	if err != nil {
		if isNoRows(err) {
			return models.BillingItemPrice{}, ErrNotFound
		}
		return models.BillingItemPrice{}, fmt.Errorf("latest price: %w", err)
	}
	return p, nil
}

// UpdatePriceAmount updates only the price of an existing row, identified
// by uuid.
func (s *Store) UpdatePriceAmount(ctx context.Context, priceID uuid.UUID, price models.BillingItemPrice) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE billing_item_prices SET price = $2 WHERE uuid = $1`,
		priceID, price.Price,
	)
	if err != nil {
		return fmt.Errorf("update price amount: %w", err)
	}
	return nil
}

// CloseAndInsertPrice closes priceToClose at validUntil and inserts a new
// open-ended price row in a single transaction.
func (s *Store) CloseAndInsertPrice(ctx context.Context, priceToClose uuid.UUID, validUntil time.Time, next models.BillingItemPrice) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("close and insert price: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE billing_item_prices SET valid_until = $2 WHERE uuid = $1`,
		priceToClose, validUntil,
	); err != nil {
		return fmt.Errorf("close and insert price: close: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO billing_item_prices (uuid, item_id, price, valid_from, valid_until, configured_at)
		 VALUES ($1, $2, $3, $4, NULL, $5)`,
		next.UUID, next.ItemID, next.Price, next.ValidFrom, next.ConfiguredAt,
	); err != nil {
		return fmt.Errorf("close and insert price: insert: %w", err)
	}

	return tx.Commit(ctx)
}

// InsertPrice inserts a brand-new, open-ended price row for an item with no
// existing prices.
func (s *Store) InsertPrice(ctx context.Context, p models.BillingItemPrice) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO billing_item_prices (uuid, item_id, price, valid_from, valid_until, configured_at)
		 VALUES ($1, $2, $3, $4, NULL, $5)`,
		p.UUID, p.ItemID, p.Price, p.ValidFrom, p.ConfiguredAt,
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}
