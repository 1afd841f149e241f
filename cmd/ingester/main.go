package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosslogic/accounting-engine/internal/billing"
	"github.com/crosslogic/accounting-engine/internal/catalogue"
	"github.com/crosslogic/accounting-engine/internal/config"
	"github.com/crosslogic/accounting-engine/internal/ingest"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/internal/workspace"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting accounting engine ingester")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer st.Close()
	logger.Info("connected to database")

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	cat := catalogue.New(st, redisClient, logger)
	wsMap := workspace.New(st)
	estimator := billing.NewEstimator(st, logger)
	recorder := billing.NewEventRecorder(st, cat, logger)
	sampler := billing.NewRateSampler(st, cat, estimator, logger)

	if err := loadSeedConfig(ctx, cfg.Ingest.SeedConfigPath, cat, logger); err != nil {
		logger.Fatal("failed to load seed configuration", zap.Error(err))
	}

	dispatcher := ingest.NewDispatcher(logger)
	dispatcher.Register(ingest.TopicBillingEvents, &ingest.BillingEventsHandler{Recorder: recorder})
	dispatcher.Register(ingest.TopicWorkspaceSettings, &ingest.WorkspaceSettingsHandler{Map: wsMap})
	dispatcher.Register(ingest.TopicRateSamples, &ingest.RateSamplesHandler{Sampler: sampler})

	bus := ingest.NewBus(logger)
	for _, topic := range []string{ingest.TopicBillingEvents, ingest.TopicWorkspaceSettings, ingest.TopicRateSamples} {
		topic := topic
		bus.Subscribe(ctx, topic, func(ctx context.Context, payload []byte) ingest.Outcome {
			return dispatcher.Dispatch(ctx, topic, payload)
		})
	}
	logger.Info("dispatcher ready", zap.Strings("topics", []string{
		ingest.TopicBillingEvents, ingest.TopicWorkspaceSettings, ingest.TopicRateSamples,
	}))

	// The real bus client is plumbing external to this engine (see
	// internal/ingest.Subscriber); wiring it in place of bus here is the
	// only change a production deployment needs to make.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ingester...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = shutdownCtx

	logger.Info("ingester exited")
}

// loadSeedConfig applies a startup seed of items and prices to the
// catalogue, if one is configured.
func loadSeedConfig(ctx context.Context, path string, cat *catalogue.Catalogue, logger *zap.Logger) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	if seed == nil {
		logger.Warn("no seed configuration file found - not loading item or price data", zap.String("path", path))
		return nil
	}

	for _, item := range seed.Items {
		if err := cat.UpsertItem(ctx, item.SKU, item.Name, item.Unit); err != nil {
			return fmt.Errorf("seed item %q: %w", item.SKU, err)
		}
	}

	for _, price := range seed.Prices {
		validFrom, err := time.Parse(time.RFC3339, price.ValidFrom)
		if err != nil {
			return fmt.Errorf("seed price for %q: malformed valid_from: %w", price.SKU, err)
		}
		amount := decimal.NewFromFloat(price.Price)
		if err := cat.UpsertPrice(ctx, price.SKU, validFrom.UTC(), amount); err != nil {
			return fmt.Errorf("seed price for %q: %w", price.SKU, err)
		}
	}

	logger.Info("loaded seed configuration", zap.Int("items", len(seed.Items)), zap.Int("prices", len(seed.Prices)))
	return nil
}
