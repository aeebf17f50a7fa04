// Package app wires configuration, storage and the ingestion core for the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/cache"
	"github.com/steemit/hnspool/internal/db"
	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/indexer"
	"github.com/steemit/hnspool/pkg/config"
	"github.com/steemit/hnspool/pkg/logging"
	"github.com/steemit/hnspool/pkg/telemetry"
)

// App holds the long-lived dependencies of a process
type App struct {
	Config *config.Config
	DB     *db.DB
	Cache  *cache.Cache
	Sync   *indexer.Sync
	Logger *zap.Logger

	shutdownTelemetry func()
}

// Init loads configuration and sets up logging and telemetry
func Init(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	shutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &App{
		Config:            cfg,
		Logger:            logging.GetLogger(),
		shutdownTelemetry: shutdown,
	}, nil
}

// OpenDB connects to the database
func (a *App) OpenDB() error {
	database, err := db.New(&a.Config.Database, a.Config.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = database
	return nil
}

// Migrate creates or updates the schema
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		if err := a.OpenDB(); err != nil {
			return err
		}
	}
	return a.DB.Migrate(ctx)
}

// BuildSync connects every dependency of an ingestion run
func (a *App) BuildSync() error {
	if a.DB == nil {
		if err := a.OpenDB(); err != nil {
			return err
		}
	}

	redisCache, err := cache.New(&a.Config.Redis)
	if err != nil {
		// The cache only saves lookups; run without it
		a.Logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		redisCache = nil
	}
	a.Cache = redisCache

	client, err := hackernews.New(&a.Config.HackerNews)
	if err != nil {
		return fmt.Errorf("failed to create Hacker News client: %w", err)
	}

	repo := db.NewRepository(a.DB.DB)
	ttl := a.Config.Redis.KnownTTL
	items := cache.NewKnownItems(db.NewItemRepository(repo), a.Cache, ttl)
	authors := cache.NewKnownAuthors(db.NewAuthorRepository(repo), a.Cache, ttl)

	a.Sync = indexer.NewSync(client, items, authors, indexer.OptionsFromConfig(&a.Config.Indexer))
	return nil
}

// Close releases every opened resource
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Error("Error closing Redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Error closing database", zap.Error(err))
		}
	}
	if a.shutdownTelemetry != nil {
		a.shutdownTelemetry()
	}
	_ = a.Logger.Sync()
}
