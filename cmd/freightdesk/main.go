package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/odyssey-erp/freightdesk/internal/app"
	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
	"github.com/odyssey-erp/freightdesk/internal/ledger"
	"github.com/odyssey-erp/freightdesk/internal/observability"
	"github.com/odyssey-erp/freightdesk/jobs"
)

func main() {
	_ = godotenv.Load()
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		logger.Error("open store backend", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	services, err := app.NewServices(ctx, cfg, backend, logger, metrics)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		_ = backend.Close()
		os.Exit(1)
	}

	go services.WatchRates(ctx, cfg)

	// The sweep queue lives in Redis and is only useful when a worker shares the store.
	var jobHandler *jobs.Handler
	var closers []func() error
	if cfg.StoreBackend != app.BackendMemory {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
		inspector := asynq.NewInspector(redisOpts)
		client := jobs.NewClient(redisOpts)
		jobHandler = jobs.NewHandler(inspector, logger).WithEnqueuer(client)
		closers = append(closers, inspector.Close, client.Close)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		FreightHandler: freight.NewHandler(logger, services.Freight),
		FinanceHandler: finance.NewHandler(logger, services.Rates),
		LedgerHandler:  ledger.NewHandler(logger, services.Ledger),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("freightdesk listening", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	err = multierr.Append(err, backend.Close())
	if err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
