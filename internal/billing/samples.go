package billing

import (
	"context"
	"fmt"

	"github.com/crosslogic/accounting-engine/internal/catalogue"
	"github.com/crosslogic/accounting-engine/internal/obs"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"go.uber.org/zap"
)

// RateSampler ingests consumption-rate samples and drives the Estimator
// forward for the (workspace, sku) pair on every new sample.
type RateSampler struct {
	store     *store.Store
	catalogue *catalogue.Catalogue
	estimator *Estimator
	logger    *zap.Logger
}

// NewRateSampler builds a RateSampler over store, catalogue, and estimator.
func NewRateSampler(st *store.Store, cat *catalogue.Catalogue, estimator *Estimator, logger *zap.Logger) *RateSampler {
	return &RateSampler{store: st, catalogue: cat, estimator: estimator, logger: logger}
}

// IngestSample inserts sample (recovering from an unknown-sku foreign-key
// violation the same way EventRecorder.InsertEvent does), then drives the
// estimator forward up to the UTC hour floor of the sample's time.
func (s *RateSampler) IngestSample(ctx context.Context, sample models.RateSample, sku string) error {
	inserted, err := s.store.InsertSample(ctx, sample, sku)
	if err != nil {
		if !store.IsForeignKeyViolation(err) {
			return err
		}

		s.logger.Info("sample references unknown sku, creating stub and retrying",
			zap.String("sku", sku), zap.String("sample", sample.UUID.String()))

		if ensureErr := s.catalogue.EnsureSKU(ctx, sku); ensureErr != nil {
			return fmt.Errorf("ingest sample: ensure sku: %w", ensureErr)
		}
		obs.StubSKUsCreated.WithLabelValues("samples").Inc()

		inserted, err = s.store.InsertSample(ctx, sample, sku)
		if err != nil {
			return fmt.Errorf("ingest sample: retry after stub creation: %w", err)
		}
	}
	if !inserted {
		// Duplicate uuid: still drive the estimator, the caller may be
		// redelivering a message whose prior estimator run did not complete.
		s.logger.Debug("duplicate rate sample ignored", zap.String("sample", sample.UUID.String()))
	}

	item, err := s.catalogue.GetItem(ctx, sku)
	if err != nil {
		return fmt.Errorf("ingest sample: resolve item: %w", err)
	}

	upto := floorToHour(sample.SampleTime)
	if err := s.estimator.GenerateUpto(ctx, sample.Workspace, item.UUID, sku, upto); err != nil {
		return fmt.Errorf("ingest sample: generate upto: %w", err)
	}
	return nil
}
