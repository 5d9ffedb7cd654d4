package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/freightdesk/internal/app"
	jobmetrics "github.com/odyssey-erp/freightdesk/internal/jobs"
	"github.com/odyssey-erp/freightdesk/jobs"
)

func main() {
	_ = godotenv.Load()
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	if cfg.StoreBackend == app.BackendMemory {
		logger.Error("worker needs a shared store; set STORE_BACKEND to redis or postgres")
		os.Exit(1)
	}

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		logger.Error("open store backend", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("backend close", slog.Any("error", err))
		}
	}()

	services, err := app.NewServices(ctx, cfg, backend, logger, nil)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}

	go services.WatchRates(ctx, cfg)

	metrics := jobmetrics.NewMetrics(nil)
	overdueJob := jobs.NewInvoiceOverdueJob(services.Freight, logger, metrics)
	integrityJob := jobs.NewIntegrityJob(services.Freight, services.Ledger, logger, metrics)
	digestJob := jobs.NewDocumentDigestJob(services.Freight, logger, metrics)

	var cron []jobs.CronRegistration
	for _, entry := range []struct {
		spec     string
		taskType string
	}{
		{cfg.OverdueCron, jobs.TaskInvoiceOverdue},
		{cfg.IntegrityCron, jobs.TaskIntegrityCheck},
		{cfg.DocumentDigestCron, jobs.TaskDocumentDigest},
	} {
		if entry.spec == "" {
			continue
		}
		// Scheduled tasks carry no cut-off so each run uses the worker clock.
		task, err := jobs.NewSweepTask(entry.taskType, time.Time{})
		if err != nil {
			logger.Error("build sweep task", slog.String("type", entry.taskType), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: entry.spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceOverdue, Handler: overdueJob.Handle},
			{Type: jobs.TaskIntegrityCheck, Handler: integrityJob.Handle},
			{Type: jobs.TaskDocumentDigest, Handler: digestJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
