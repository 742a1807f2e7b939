package main

import (
	"context"
	"errors"
	"os"
	"time"

	"honorarios/internal/amqp"
	"honorarios/internal/cli"
	"honorarios/internal/config"
	applog "honorarios/internal/log"
	"honorarios/internal/services"
	"honorarios/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting snapshot-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("snapshot-worker reads the SQLite database; DATA_BACKEND must be sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	sinks, err := cli.SnapshotSinks(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot sinks", applog.FieldError, err.Error())
		os.Exit(1)
	}

	retry := services.RetryPolicy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		Logger:   logger.WithComponent(applog.ComponentStorage),
	}
	exporter := services.NewSnapshotService(repo, retry, logger, sinks...)
	snapshotWorker := worker.NewSnapshotWorker(exporter, cfg.SnapshotInterval, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled - only periodic snapshot exports will run")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := snapshotWorker.Stop(ctx); err != nil {
			logger.Error("Snapshot worker stop error", applog.FieldError, err.Error())
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", applog.FieldError, err.Error())
			}
		}
		if err := repo.Close(); err != nil {
			logger.Error("SQLite close error", applog.FieldError, err.Error())
		}
	})

	if err := snapshotWorker.Start(ctx); err != nil {
		logger.Error("Failed to start snapshot worker", applog.FieldError, err.Error())
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSnapshotRequests(ctx, snapshotWorker.HandleSnapshotRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Snapshot request consumption failed", applog.FieldError, err.Error())
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
