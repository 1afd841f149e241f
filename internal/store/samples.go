package store

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// InsertSample inserts a consumption-rate sample, resolving sku to item_id
// the same way InsertEvent does. An unknown sku violates the item_id
// foreign key; duplicate uuids are swallowed.
func (s *Store) InsertSample(ctx context.Context, sample models.RateSample, sku string) (inserted bool, err error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO consumption_rate_samples (uuid, sample_time, item_id, workspace, "user", rate)
		SELECT $1, $2, i.uuid, $4, $5, $6
		FROM billing_items i WHERE i.sku = $3
		ON CONFLICT (uuid) DO NOTHING`,
		sample.UUID, sample.SampleTime, sku, sample.Workspace, sample.User, sample.Rate,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SampleCount returns the number of recorded samples for (workspace,
// itemID), capped at 2 since callers only need to distinguish "fewer than
// two" from "two or more".
func (s *Store) SampleCount(ctx context.Context, workspace string, itemID uuid.UUID) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
			SELECT 1 FROM consumption_rate_samples WHERE workspace = $1 AND item_id = $2 LIMIT 2
		 ) capped`,
		workspace, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sample count: %w", err)
	}
	return count, nil
}

// EarliestSample returns the earliest recorded sample for (workspace,
// itemID), or ErrNotFound if none exists.
func (s *Store) EarliestSample(ctx context.Context, workspace string, itemID uuid.UUID) (models.RateSample, error) {
	var sample models.RateSample
	err := s.Pool.QueryRow(ctx,
		`SELECT uuid, sample_time, item_id, workspace, "user", rate
		 FROM consumption_rate_samples WHERE workspace = $1 AND item_id = $2
		 ORDER BY sample_time ASC LIMIT 1`,
		workspace, itemID,
	).Scan(&sample.UUID, &sample.SampleTime, &sample.ItemID, &sample.Workspace, &sample.User, &sample.Rate)
	if err != nil {
		if isNoRows(err) {
			return models.RateSample{}, ErrNotFound
		}
		return models.RateSample{}, fmt.Errorf("earliest sample: %w", err)
	}
	return sample, nil
}

// IntervalData is the rate-sample data relevant to integrating a window
// [start, end): the predecessor at or before start (if any), every sample
// strictly inside the window in order, and the successor at or after end
// (if any).
type IntervalData struct {
	Predecessor *models.RateSample
	InWindow    []models.RateSample
	Successor   *models.RateSample
}

// FindDataForInterval fetches the three pieces of sample data needed to
// integrate the window [start, end) for (workspace, itemID).
func (s *Store) FindDataForInterval(ctx context.Context, workspace string, itemID uuid.UUID, start, end time.Time) (IntervalData, error) {
	var data IntervalData

	pred, err := s.sampleQuery(ctx,
		`SELECT uuid, sample_time, item_id, workspace, "user", rate
		 FROM consumption_rate_samples WHERE workspace = $1 AND item_id = $2 AND sample_time <= $3
		 ORDER BY sample_time DESC LIMIT 1`,
		workspace, itemID, start)
	if err != nil {
		return data, fmt.Errorf("find data for interval: predecessor: %w", err)
	}
	data.Predecessor = pred

	rows, err := s.Pool.Query(ctx,
		`SELECT uuid, sample_time, item_id, workspace, "user", rate
		 FROM consumption_rate_samples WHERE workspace = $1 AND item_id = $2
		 AND sample_time > $3 AND sample_time < $4
		 ORDER BY sample_time ASC`,
		workspace, itemID, start, end)
	if err != nil {
		return data, fmt.Errorf("find data for interval: in-window: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sample models.RateSample
		if err := rows.Scan(&sample.UUID, &sample.SampleTime, &sample.ItemID, &sample.Workspace, &sample.User, &sample.Rate); err != nil {
			return data, fmt.Errorf("find data for interval: scan: %w", err)
		}
		data.InWindow = append(data.InWindow, sample)
	}
	if err := rows.Err(); err != nil {
		return data, err
	}

	succ, err := s.sampleQuery(ctx,
		`SELECT uuid, sample_time, item_id, workspace, "user", rate
		 FROM consumption_rate_samples WHERE workspace = $1 AND item_id = $2 AND sample_time >= $3
		 ORDER BY sample_time ASC LIMIT 1`,
		workspace, itemID, end)
	if err != nil {
		return data, fmt.Errorf("find data for interval: successor: %w", err)
	}
	data.Successor = succ

	return data, nil
}

func (s *Store) sampleQuery(ctx context.Context, sql string, args ...any) (*models.RateSample, error) {
	var sample models.RateSample
	err := s.Pool.QueryRow(ctx, sql, args...).Scan(
		&sample.UUID, &sample.SampleTime, &sample.ItemID, &sample.Workspace, &sample.User, &sample.Rate)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}
