// Package billing holds the core consumption-accounting algorithms: event
// recording, rate-sample ingestion, the hourly estimator, and the paginated
// event query.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/internal/catalogue"
	"github.com/crosslogic/accounting-engine/internal/obs"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventRecorder idempotently inserts billing events, auto-creating stub
// SKUs on unknown references.
type EventRecorder struct {
	store     *store.Store
	catalogue *catalogue.Catalogue
	logger    *zap.Logger
}

// NewEventRecorder builds an EventRecorder over store and catalogue.
func NewEventRecorder(st *store.Store, cat *catalogue.Catalogue, logger *zap.Logger) *EventRecorder {
	return &EventRecorder{store: st, catalogue: cat, logger: logger}
}

// InsertEvent inserts ev, recovering from an unknown-sku foreign-key
// violation by creating a stub item and retrying exactly once. Returns the
// inserted uuid, or uuid.Nil if the event was a duplicate.
func (r *EventRecorder) InsertEvent(ctx context.Context, ev models.BillingEvent, sku string) (uuid.UUID, error) {
	inserted, err := r.store.InsertEvent(ctx, ev, sku)
	if err != nil {
		if !store.IsForeignKeyViolation(err) {
			return uuid.Nil, err
		}

		r.logger.Info("event references unknown sku, creating stub and retrying",
			zap.String("sku", sku), zap.String("event", ev.UUID.String()))

		if ensureErr := r.catalogue.EnsureSKU(ctx, sku); ensureErr != nil {
			return uuid.Nil, fmt.Errorf("insert event: ensure sku: %w", ensureErr)
		}
		obs.StubSKUsCreated.WithLabelValues("events").Inc()

		inserted, err = r.store.InsertEvent(ctx, ev, sku)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert event: retry after stub creation: %w", err)
		}
	}

	if !inserted {
		return uuid.Nil, nil
	}
	return ev.UUID, nil
}

// floorToHour truncates t to the start of its UTC clock hour.
func floorToHour(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
}
