// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	auditstore "github.com/dalemusser/hackhub/internal/app/store/audit"
	"github.com/dalemusser/hackhub/internal/app/system/indexes"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/hackhub/internal/app/system/validators"
)

// ConnectDB establishes the MongoDB connection and verifies it with a
// ping before the rest of startup proceeds.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		MongoClient: client,
		MongoDB:     client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema reconciles indexes and collection validators on startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDB); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	if err := validators.EnsureAll(ctx, deps.MongoDB); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := auditstore.New(deps.MongoDB).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure audit indexes: %w", err)
	}
	logger.Info("schema up to date")
	return nil
}
