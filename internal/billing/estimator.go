package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crosslogic/accounting-engine/internal/obs"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// estimatorNamespace is the fixed UUIDv5 namespace for estimator-generated
// billing events. Deterministic IDs make regeneration idempotent: a window
// produced twice collides on its primary key and the second insert is a
// no-op.
var estimatorNamespace = uuid.MustParse("67f9a35c-567c-4a30-b51d-2fc64328bd55")

// Estimator converts a (workspace, sku) pair's rate-sample series into
// hourly billing events by piecewise-linear integration.
type Estimator struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEstimator builds an Estimator over store.
func NewEstimator(st *store.Store, logger *zap.Logger) *Estimator {
	return &Estimator{store: st, logger: logger}
}

// GenerateUpto generates every hourly window for (workspace, sku) from the
// current frontier up to upto, inserting one BillingEvent per window.
// A series with fewer than two recorded samples produces no events: the
// integral is undefined, not zero.
func (e *Estimator) GenerateUpto(ctx context.Context, workspaceName string, itemID uuid.UUID, sku string, upto time.Time) error {
	count, err := e.store.SampleCount(ctx, workspaceName, itemID)
	if err != nil {
		return fmt.Errorf("generate upto: sample count: %w", err)
	}
	if count < 2 {
		return nil
	}

	windowStart, err := e.frontier(ctx, workspaceName, itemID)
	if err != nil {
		return fmt.Errorf("generate upto: frontier: %w", err)
	}

	upto = upto.UTC()
	for {
		windowEnd := windowStart.Add(time.Hour)
		if windowEnd.After(upto) {
			break
		}
		if err := e.generateWindow(ctx, workspaceName, itemID, sku, windowStart, windowEnd); err != nil {
			return fmt.Errorf("generate upto: window [%s,%s): %w", windowStart, windowEnd, err)
		}
		windowStart = windowEnd
	}
	return nil
}

// frontier is the start of the next window this pair should generate: the
// end of the latest already-generated event, or the UTC-hour floor of the
// earliest recorded sample if no event has been generated yet.
func (e *Estimator) frontier(ctx context.Context, workspaceName string, itemID uuid.UUID) (time.Time, error) {
	latestEnd, err := e.store.LatestEventEnd(ctx, workspaceName, itemID)
	if err == nil {
		return latestEnd.UTC(), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return time.Time{}, err
	}

	earliest, err := e.store.EarliestSample(ctx, workspaceName, itemID)
	if err != nil {
		return time.Time{}, err
	}
	return floorToHour(earliest.SampleTime), nil
}

func (e *Estimator) generateWindow(ctx context.Context, workspaceName string, itemID uuid.UUID, sku string, windowStart, windowEnd time.Time) error {
	data, err := e.store.FindDataForInterval(ctx, workspaceName, itemID, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("find data for interval: %w", err)
	}

	quantity := integrateWindow(windowStart, windowEnd, data)

	key := fmt.Sprintf("%s-%s-%s", workspaceName, sku, isoformat(windowStart))
	ev := models.BillingEvent{
		UUID:       uuid.NewSHA1(estimatorNamespace, []byte(key)),
		EventStart: windowStart,
		EventEnd:   windowEnd,
		ItemID:     itemID,
		Workspace:  workspaceName,
		Quantity:   quantity,
	}

	inserted, err := e.store.InsertEvent(ctx, ev, sku)
	if err != nil {
		return fmt.Errorf("insert estimated event: %w", err)
	}
	if inserted {
		obs.EstimatorWindowsGenerated.WithLabelValues(sku).Inc()
		e.logger.Debug("estimator window generated",
			zap.String("workspace", workspaceName),
			zap.String("sku", sku),
			zap.Time("window_start", windowStart),
			zap.Float64("quantity", quantity),
		)
	}
	return nil
}

// isoformat renders t (already UTC) the way Python's datetime.isoformat()
// renders an aware UTC datetime, for continuity with the estimator key
// this engine was ported from.
func isoformat(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05+00:00")
}

type ratePoint struct {
	t    time.Time
	rate float64
}

// integrateWindow computes the trapezoidal-rule integral of the piecewise
// linear rate function over [start, end), given the predecessor,
// in-window, and successor samples bracketing it.
func integrateWindow(start, end time.Time, data store.IntervalData) float64 {
	middles := data.InWindow

	var firstAfterStart *models.RateSample
	if len(middles) > 0 {
		firstAfterStart = &middles[0]
	} else {
		firstAfterStart = data.Successor
	}

	var lastBeforeEnd *models.RateSample
	if len(middles) > 0 {
		lastBeforeEnd = &middles[len(middles)-1]
	} else {
		lastBeforeEnd = data.Predecessor
	}

	var vertices []ratePoint

	// Start vertex: interpolate between the bracketing samples if both
	// exist; otherwise the resource is assumed not to exist yet, rate 0.
	if data.Predecessor != nil && firstAfterStart != nil {
		vertices = append(vertices, ratePoint{start, interpolateRate(*data.Predecessor, *firstAfterStart, start)})
	} else {
		vertices = append(vertices, ratePoint{start, 0})
	}

	// No predecessor but a sample arrives inside this window: the rate
	// stays flat at 0 until that instant, then steps up.
	if data.Predecessor == nil && len(middles) > 0 {
		vertices = append(vertices, ratePoint{middles[0].SampleTime, 0})
	}

	for _, m := range middles {
		vertices = append(vertices, ratePoint{m.SampleTime, m.Rate})
	}

	// No successor but a sample existed inside this window: the rate holds
	// until that instant, then steps down to 0 for the remainder.
	if data.Successor == nil && len(middles) > 0 {
		vertices = append(vertices, ratePoint{middles[len(middles)-1].SampleTime, 0})
	}

	// End vertex: interpolate between the bracketing samples if both
	// exist; otherwise the resource is assumed to have ceased, rate 0.
	if data.Successor != nil && lastBeforeEnd != nil {
		vertices = append(vertices, ratePoint{end, interpolateRate(*lastBeforeEnd, *data.Successor, end)})
	} else {
		vertices = append(vertices, ratePoint{end, 0})
	}

	var quantity float64
	for i := 0; i+1 < len(vertices); i++ {
		dt := vertices[i+1].t.Sub(vertices[i].t).Seconds()
		quantity += dt * (vertices[i].rate + vertices[i+1].rate) / 2
	}
	return quantity
}

// interpolateRate linearly interpolates the rate at t between samples a
// and b, a.SampleTime <= t <= b.SampleTime.
func interpolateRate(a, b models.RateSample, t time.Time) float64 {
	span := b.SampleTime.Sub(a.SampleTime).Seconds()
	if span <= 0 {
		return a.Rate
	}
	frac := t.Sub(a.SampleTime).Seconds() / span
	return a.Rate + frac*(b.Rate-a.Rate)
}
