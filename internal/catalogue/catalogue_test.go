package catalogue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func newTestCatalogue(t *testing.T) (*Catalogue, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := &Catalogue{cache: client, logger: zap.NewNop()}
	return c, func() {
		client.Close()
		mr.Close()
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, cleanup := newTestCatalogue(t)
	defer cleanup()

	ctx := context.Background()
	items := []models.BillingItem{{SKU: "sku-1", Name: "Widget", Unit: "unit"}}
	c.setCached(ctx, "catalogue:items", items)

	got, ok := c.getCached(ctx, "catalogue:items", &[]models.BillingItem{})
	if !ok {
		t.Fatal("expected a cache hit")
	}
	restored := *got.(*[]models.BillingItem)
	if len(restored) != 1 || restored[0].SKU != "sku-1" {
		t.Fatalf("got %+v", restored)
	}
}

func TestCacheMissOnUnsetKey(t *testing.T) {
	c, cleanup := newTestCatalogue(t)
	defer cleanup()

	_, ok := c.getCached(context.Background(), "catalogue:items", &[]models.BillingItem{})
	if ok {
		t.Fatal("expected a cache miss on an unset key")
	}
}

func TestInvalidateItemsRemovesCachedEntry(t *testing.T) {
	c, cleanup := newTestCatalogue(t)
	defer cleanup()

	ctx := context.Background()
	c.setCached(ctx, "catalogue:items", []models.BillingItem{{SKU: "sku-1"}})
	c.invalidateItems(ctx)

	_, ok := c.getCached(ctx, "catalogue:items", &[]models.BillingItem{})
	if ok {
		t.Fatal("expected the entry to be gone after invalidation")
	}
}

func TestNilCacheIsAlwaysAMiss(t *testing.T) {
	c := &Catalogue{logger: zap.NewNop()}
	_, ok := c.getCached(context.Background(), "any-key", &[]models.BillingItem{})
	if ok {
		t.Fatal("expected a miss when no cache is configured")
	}
	// setCached and invalidateItems must not panic with a nil cache.
	c.setCached(context.Background(), "any-key", []models.BillingItem{})
	c.invalidateItems(context.Background())
}
