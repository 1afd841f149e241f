package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// InsertEvent inserts a billing event, resolving sku to item_id via a
// subquery. If sku is unknown the subquery yields NULL and the insert
// violates the item_id foreign key; callers classify that with
// store.IsForeignKeyViolation and recover by calling EnsureSKU. Duplicate
// uuids are swallowed (first writer wins): inserted reports false without
// error in that case.
func (s *Store) InsertEvent(ctx context.Context, ev models.BillingEvent, sku string) (inserted bool, err error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO billing_events (uuid, event_start, event_end, item_id, workspace, "user", quantity)
		SELECT $1, $2, $3, i.uuid, $5, $6, $7
		FROM billing_items i WHERE i.sku = $4
		ON CONFLICT (uuid) DO NOTHING`,
		ev.UUID, ev.EventStart, ev.EventEnd, sku, ev.Workspace, ev.User, ev.Quantity,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// LatestEventEnd returns the event_end of the most recent BillingEvent
// recorded for (workspace, itemID), or ErrNotFound if none exists. Used by
// the estimator to find the frontier it should continue from.
func (s *Store) LatestEventEnd(ctx context.Context, workspace string, itemID uuid.UUID) (time.Time, error) {
	var end time.Time
	err := s.Pool.QueryRow(ctx,
		`SELECT event_end FROM billing_events WHERE workspace = $1 AND item_id = $2
		 ORDER BY event_end DESC LIMIT 1`,
		workspace, itemID,
	).Scan(&end)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest event end: %w", err)
	}
	return end, nil
}

// EventQuery describes a find_events invocation.
type EventQuery struct {
	Workspace   string
	Account     uuid.UUID
	HasAccount  bool
	Start       *time.Time
	End         *time.Time
	After       *uuid.UUID
	Limit       int
	Aggregation string // "", "day", "month"
}

// FindEvents returns a totally-ordered, paginated view of billing events
// matching q, optionally aggregated by UTC day or month.
func (s *Store) FindEvents(ctx context.Context, q EventQuery) ([]models.BillingEventView, error) {
	var afterTuple *eventCursor
	if q.After != nil {
		c, err := s.eventCursorFor(ctx, *q.After)
		if err != nil {
			return nil, fmt.Errorf("find events: resolve after: %w", err)
		}
		afterTuple = c // nil if the referenced uuid does not exist; after is then ignored
	}

	switch q.Aggregation {
	case "day", "month":
		return s.findEventsAggregated(ctx, q, afterTuple)
	default:
		return s.findEventsPlain(ctx, q, afterTuple)
	}
}

type eventCursor struct {
	EventStart time.Time
	EventEnd   time.Time
	Workspace  string
	UUID       uuid.UUID
}

func (s *Store) eventCursorFor(ctx context.Context, id uuid.UUID) (*eventCursor, error) {
	var c eventCursor
	err := s.Pool.QueryRow(ctx,
		`SELECT event_start, event_end, workspace, uuid FROM billing_events WHERE uuid = $1`, id,
	).Scan(&c.EventStart, &c.EventEnd, &c.Workspace, &c.UUID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) findEventsPlain(ctx context.Context, q EventQuery, after *eventCursor) ([]models.BillingEventView, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT e.uuid, e.event_start, e.event_end, i.sku, e.workspace, e."user", e.quantity
		FROM billing_events e JOIN billing_items i ON i.uuid = e.item_id`)
	if q.HasAccount {
		sb.WriteString(` JOIN workspace_accounts wa ON wa.workspace = e.workspace`)
	}

	var args []any
	var clauses []string
	if q.Workspace != "" {
		args = append(args, q.Workspace)
		clauses = append(clauses, fmt.Sprintf("e.workspace = $%d", len(args)))
	}
	if q.HasAccount {
		args = append(args, q.Account)
		clauses = append(clauses, fmt.Sprintf("wa.account = $%d", len(args)))
	}
	if q.Start != nil {
		args = append(args, *q.Start)
		clauses = append(clauses, fmt.Sprintf("e.event_start >= $%d", len(args)))
	}
	if q.End != nil {
		args = append(args, *q.End)
		clauses = append(clauses, fmt.Sprintf("e.event_end < $%d", len(args)))
	}
	if after != nil {
		args = append(args, after.EventStart, after.EventEnd, after.Workspace, after.UUID)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(e.event_start, e.event_end, e.workspace, e.uuid) > ($%d, $%d, $%d, $%d)",
			n-3, n-2, n-1, n))
	}

	if len(clauses) > 0 {
		sb.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY e.event_start ASC, e.event_end ASC, e.workspace ASC, e.uuid ASC")
	args = append(args, q.Limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	var out []models.BillingEventView
	for rows.Next() {
		var v models.BillingEventView
		if err := rows.Scan(&v.UUID, &v.EventStart, &v.EventEnd, &v.SKU, &v.Workspace, &v.User, &v.Quantity); err != nil {
			return nil, fmt.Errorf("find events: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) findEventsAggregated(ctx context.Context, q EventQuery, after *eventCursor) ([]models.BillingEventView, error) {
	bucketUnit := "day"
	bucketInterval := "1 day"
	if q.Aggregation == "month" {
		bucketUnit = "month"
		bucketInterval = "1 month"
	}

	var sb strings.Builder
	sb.WriteString(`WITH filtered AS (
		SELECT e.uuid, e.event_start, e.event_end, e.workspace, e.item_id, i.sku, e."user", e.quantity
		FROM billing_events e JOIN billing_items i ON i.uuid = e.item_id`)
	if q.HasAccount {
		sb.WriteString(` JOIN workspace_accounts wa ON wa.workspace = e.workspace`)
	}

	var args []any
	var clauses []string
	if q.Workspace != "" {
		args = append(args, q.Workspace)
		clauses = append(clauses, fmt.Sprintf("e.workspace = $%d", len(args)))
	}
	if q.HasAccount {
		args = append(args, q.Account)
		clauses = append(clauses, fmt.Sprintf("wa.account = $%d", len(args)))
	}
	if q.Start != nil {
		args = append(args, *q.Start)
		clauses = append(clauses, fmt.Sprintf("e.event_start >= $%d", len(args)))
	}
	if q.End != nil {
		args = append(args, *q.End)
		clauses = append(clauses, fmt.Sprintf("e.event_end < $%d", len(args)))
	}
	if len(clauses) > 0 {
		sb.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	sb.WriteString(`), buckets AS (
		SELECT workspace, sku, "user",
			date_trunc('` + bucketUnit + `', event_start) AS bucket_start,
			SUM(quantity) AS quantity,
			(ARRAY_AGG(uuid ORDER BY event_start ASC, uuid ASC))[1] AS uuid
		FROM filtered
		GROUP BY workspace, sku, "user", bucket_start
	)
	SELECT uuid, bucket_start, bucket_start + interval '` + bucketInterval + `', sku, workspace, "user", quantity
	FROM buckets`)

	if after != nil {
		// The cursor event's start is truncated to its bucket so it compares
		// against the synthetic rows in the same order as ORDER BY below.
		args = append(args, after.EventStart, after.Workspace, after.UUID)
		n := len(args)
		sb.WriteString(fmt.Sprintf(
			" WHERE (bucket_start, workspace, uuid) > (date_trunc('%s', $%d::timestamptz), $%d, $%d)",
			bucketUnit, n-2, n-1, n))
	}

	sb.WriteString(" ORDER BY bucket_start ASC, workspace ASC, uuid ASC")
	args = append(args, q.Limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find events aggregated: %w", err)
	}
	defer rows.Close()

	var out []models.BillingEventView
	for rows.Next() {
		var v models.BillingEventView
		if err := rows.Scan(&v.UUID, &v.EventStart, &v.EventEnd, &v.SKU, &v.Workspace, &v.User, &v.Quantity); err != nil {
			return nil, fmt.Errorf("find events aggregated: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
