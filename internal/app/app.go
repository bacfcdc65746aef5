// Package app provides the top-level application lifecycle: it wires the
// stores, caches, engine, service, and API server, then runs them until
// shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boxmeout/poolengine/internal/config"
	"github.com/boxmeout/poolengine/internal/server"
	"github.com/boxmeout/poolengine/internal/server/handler"
	"github.com/boxmeout/poolengine/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger,
// and cleanup functions run in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the API server, WebSocket hub, and
// optional archiver, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	params := deps.Engine.Params()
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, ws.Config{
		PricingModel:  params.PricingModel,
		TradingFeeBps: params.TradingFeeBps,
		StartedAt:     startedAt,
	}, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": deps.Postgres,
			"redis":    deps.Redis,
		}, a.logger),
		Pools:  handler.NewPoolHandler(deps.Service, a.logger),
		Trades: handler.NewTradeHandler(deps.Service, a.logger),
		Params: handler.NewParamsHandler(deps.Service, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	deps.Publisher.EngineStarted(ctx, params.PricingModel, params.TradingFeeBps)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(gctx)
		})
	}

	a.logger.InfoContext(ctx, "engine running",
		slog.String("pricing_model", params.PricingModel),
		slog.Int("port", a.cfg.Server.Port),
	)

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
