package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/boxmeout/poolengine/internal/blob/s3"
	"github.com/boxmeout/poolengine/internal/cache/redis"
	"github.com/boxmeout/poolengine/internal/config"
	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/engine"
	"github.com/boxmeout/poolengine/internal/events"
	"github.com/boxmeout/poolengine/internal/notify"
	"github.com/boxmeout/poolengine/internal/service"
	"github.com/boxmeout/poolengine/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application needs. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	PoolStore  domain.PoolStore
	TradeStore domain.TradeStore

	PoolCache   domain.PoolCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	Engine    *engine.Engine
	Service   *service.AMMService
	Publisher *events.Publisher
	Notifier  *notify.Notifier
	Archiver  *s3blob.Archiver

	Postgres *postgres.Client
	Redis    *redis.Client
}

// Wire constructs all concrete implementations from the configuration and
// returns them with a cleanup function releasing resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Postgres = pgClient
	deps.PoolStore = postgres.NewPoolStore(pgClient.Pool())
	deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())

	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.PoolCache = redis.NewPoolCache(redisClient, cfg.CacheTTL())
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	liquidityCap, err := cfg.LiquidityCap()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	params := engine.Params{
		TradingFeeBps:         cfg.Engine.TradingFeeBps,
		SlippageProtectionBps: cfg.Engine.SlippageProtectionBps,
		MaxLiquidityCap:       liquidityCap,
		PricingModel:          cfg.Engine.PricingModel,
	}
	if err := params.Validate(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine params: %w", err)
	}
	deps.Engine = engine.New(params, deps.PoolStore, logger)

	deps.Publisher = events.NewPublisher(deps.SignalBus, logger)

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	deps.Service = service.NewAMMService(
		deps.Engine,
		deps.TradeStore,
		deps.PoolCache,
		deps.LockManager,
		deps.Publisher,
		deps.Notifier,
		service.Options{
			LockTTL:           cfg.LockTTL(),
			RequireSignatures: cfg.Engine.RequireSignatures,
		},
		logger,
	)

	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		tradeArchive, ok := deps.TradeStore.(s3blob.TradeArchiveStore)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("wire: trade store does not support archival")
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			tradeArchive,
			cfg.ArchiveInterval(),
			cfg.ArchiveRetention(),
			logger,
		)
	}

	return deps, cleanup, nil
}
