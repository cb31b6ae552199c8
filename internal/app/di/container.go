package di

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"quote_backend/internal/app/router"
	quoteadapters "quote_backend/internal/feature/quotes/adapters"
	quotehandler "quote_backend/internal/feature/quotes/transport/handler"
	quoteusecase "quote_backend/internal/feature/quotes/usecase"
	refreshadapters "quote_backend/internal/feature/refresh/adapters"
	refreshhandler "quote_backend/internal/feature/refresh/transport/handler"
	refreshusecase "quote_backend/internal/feature/refresh/usecase"
	streamhandler "quote_backend/internal/feature/stream/transport/handler"
	symboladapters "quote_backend/internal/feature/symbols/adapters"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	symbolhandler "quote_backend/internal/feature/symbols/transport/handler"
	symbolusecase "quote_backend/internal/feature/symbols/usecase"
	"quote_backend/internal/platform/cache"
	"quote_backend/internal/platform/config"
	infradb "quote_backend/internal/platform/db"
	platformhandler "quote_backend/internal/platform/http/handler"
	"quote_backend/internal/platform/pubsub"
	infraredis "quote_backend/internal/platform/redis"
	"quote_backend/internal/shared/ratelimiter"
)

// Models はマイグレーション対象のテーブルです。
func Models() []any {
	return []any{&symbolentity.Symbol{}, &quoteadapters.PriceSampleModel{}}
}

// Container はサーバーとCLIが共有するコンポーネント一式です。
// Redis と Bridge は Redis 未設定時に nil です。
type Container struct {
	Config config.Config

	DB    *gorm.DB
	Redis *redis.Client

	Symbols   *symbolusecase.SymbolUsecase
	Quotes    *quoteusecase.QuoteUsecase
	Broker    *pubsub.Broker
	Bridge    *pubsub.RedisBridge
	Cycles    *refreshusecase.CycleUsecase
	Scheduler *refreshusecase.Scheduler
}

// Build opens the database (and Redis when configured) and wires every component.
func Build(ctx context.Context, cfg config.Config) (*Container, error) {
	dbCfg, err := infradb.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	db, err := infradb.OpenDB(dbCfg, Models()...)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "driver", dbCfg.Driver)

	rdb, err := infraredis.NewRedisClient(ctx)
	switch {
	case errors.Is(err, infraredis.ErrNotConfigured):
		slog.Info("Redis not configured. Running without cache, bus bridge and cycle lock.")
	case err != nil:
		slog.Warn("Redis unavailable. Running without cache, bus bridge and cycle lock.", "error", err)
		rdb = nil
	}

	c := &Container{Config: cfg, DB: db, Redis: rdb}

	c.Symbols = symbolusecase.NewSymbolUsecase(symboladapters.NewSymbolRepository(db), cfg.RegistryCacheTTL)

	// Redisキャッシュでラップ
	var samples quoteusecase.SampleRepository = quoteadapters.NewSampleRepository(db)
	if rdb != nil {
		samples = cache.NewCachingSampleRepository(rdb, config.Duration("QUOTE_CACHE_TTL", 5*time.Minute), samples, "quotes")
	}
	c.Quotes = quoteusecase.NewQuoteUsecase(samples, c.Symbols, cfg.PriceBucket)

	c.Broker = pubsub.NewBroker(pubsub.Config{})
	var publisher pubsub.Publisher
	publisher, c.Bridge = NewPublisher(rdb, c.Broker)

	c.Cycles = refreshusecase.NewCycleUsecase(c.Symbols, NewMarket(), c.Quotes, publisher, refreshusecase.Options{
		Workers:           cfg.Workers,
		AlertThresholdPct: cfg.AlertThreshold,
		Pacer:             ratelimiter.NewPacer(cfg.SymbolDelay),
	})

	var lock refreshusecase.CycleLock
	if rdb != nil {
		lock = refreshadapters.NewRedisLock(rdb, "", cfg.LockTTL)
	}
	c.Scheduler = refreshusecase.NewScheduler(c.Cycles, cfg.FetchInterval, lock)

	return c, nil
}

// SeedSymbols は TRACKED_SYMBOLS と SYMBOLS_FILE の銘柄を登録します。既存の銘柄はそのままです。
// 解釈できない要素は警告を出して読み飛ばします。
func (c *Container) SeedSymbols(ctx context.Context) (int, error) {
	symbols, errs := symbolusecase.ParseTrackedSymbols(c.Config.TrackedSymbols)
	for _, err := range errs {
		slog.Warn("skip tracked symbol", "error", err)
	}
	if c.Config.SymbolsFile != "" {
		fromFile, err := symbolusecase.LoadSeedFile(c.Config.SymbolsFile)
		if err != nil {
			slog.Error("failed to load symbols file", "path", c.Config.SymbolsFile, "error", err)
		} else {
			symbols = append(symbols, fromFile...)
		}
	}
	return c.Symbols.Seed(ctx, symbols)
}

// Router builds the HTTP router with every handler.
func (c *Container) Router() *gin.Engine {
	checks := map[string]platformhandler.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}
	}

	return router.NewRouter(router.Handlers{
		Health:  platformhandler.NewHealthHandler(checks),
		Symbols: symbolhandler.NewSymbolHandler(c.Symbols),
		Quotes:  quotehandler.NewQuoteHandler(c.Quotes),
		Stream:  streamhandler.NewStreamHandler(c.Broker, c.Quotes, 0),
		Admin:   refreshhandler.NewAdminHandler(c.Scheduler, c.Broker.Stats),
	})
}

// Close releases the broker, Redis and the database.
func (c *Container) Close() {
	c.Broker.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
}
