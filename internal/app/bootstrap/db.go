// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	categorystore "github.com/dalemusser/larder/internal/app/store/categories"
	"github.com/dalemusser/larder/internal/app/system/indexes"
	"github.com/dalemusser/larder/internal/app/system/metrics"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB and, when configured, the Redis change-event
// broker, and builds the realtime hub on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("larder")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		svc:           &services{},
	}

	var broker realtime.Broker
	if appCfg.RedisURL != "" {
		b, err := realtime.NewRedisBroker(cctx, appCfg.RedisURL, logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, err
		}
		deps.Broker = b
		broker = b
	}
	deps.Hub = realtime.NewHub(broker, logger)
	deps.Hub.OnDrop(metrics.RealtimeDropped)

	return deps, nil
}

// EnsureSchema reconciles indexes and seeds the category catalog.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()

	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	n, err := categorystore.New(deps.MongoDatabase).SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if n > 0 {
		logger.Info("seeded default categories", zap.Int("count", n))
	}
	return nil
}
