package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/internal/obs"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// DefaultInternalLimit is the find_events limit used by internal callers
// that do not specify one.
const DefaultInternalLimit = 5000

// EventQuery paginates billing events by workspace or account with an
// optional time filter and optional day/month aggregation.
type EventQuery struct {
	store *store.Store
}

// NewEventQuery builds an EventQuery over store.
func NewEventQuery(st *store.Store) *EventQuery {
	return &EventQuery{store: st}
}

// Params mirrors store.EventQuery but exposes a richer aggregation enum
// and defaults the limit when unset.
type Params struct {
	Workspace   string
	Account     uuid.UUID
	HasAccount  bool
	Start       *time.Time
	End         *time.Time
	After       *uuid.UUID
	Limit       int
	Aggregation string // "", "day", "month"
}

// FindEvents returns the paginated, totally-ordered view of billing events
// matching p.
func (q *EventQuery) FindEvents(ctx context.Context, p Params) ([]models.BillingEventView, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultInternalLimit
	}

	aggLabel := p.Aggregation
	if aggLabel == "" {
		aggLabel = "none"
	}
	timer := newTimer()
	defer func() {
		obs.QueryLatency.WithLabelValues(aggLabel).Observe(timer())
	}()

	views, err := q.store.FindEvents(ctx, store.EventQuery{
		Workspace:   p.Workspace,
		Account:     p.Account,
		HasAccount:  p.HasAccount,
		Start:       p.Start,
		End:         p.End,
		After:       p.After,
		Limit:       limit,
		Aggregation: p.Aggregation,
	})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return views, nil
}

func newTimer() func() float64 {
	start := time.Now()
	return func() float64 { return time.Since(start).Seconds() }
}
