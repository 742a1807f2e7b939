package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"honorarios/internal/backend"
	"honorarios/internal/cache"
	"honorarios/internal/cli"
	apphttp "honorarios/internal/http"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
	"honorarios/internal/report"
	"honorarios/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp)
	logger.Info("Starting honorarios")

	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	retry := services.RetryPolicy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		Logger:   logger.WithComponent(applog.ComponentStorage),
	}

	reportCache := cache.NewVersioned[any](cfg.ReportCacheEntries, cfg.ReportCacheTTL)
	cacheMgr := cache.NewManager(logger.Logger)
	cacheMgr.Register(reportCache)
	cacheMgr.StartCleanup(cfg.ReportCacheTTL)

	reconciler := services.NewReconciler(res.Store, retry, reportCache, logger)

	// With a broker the worker owns the sinks; the local service only builds
	// snapshots for the download route.
	var sinks []ports.SnapshotWriter
	if res.Publisher == nil {
		sinks, err = cli.SnapshotSinks(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize snapshot sinks", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}
	snapshots := services.NewSnapshotService(res.Store, retry, logger, sinks...)

	var requester services.SnapshotRequester = snapshots
	if res.Publisher != nil {
		requester = res.Publisher
		logger.Info("Snapshot requests published to broker", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Snapshots exported in-process", "path", cfg.SnapshotXLSXPath)
	}
	dispatcher := services.NewDispatcher(reconciler, requester, logger)

	clients := services.NewClientService(res.Store, retry, dispatcher, logger)
	ledger := services.NewLedger(res.Store, services.LedgerConfig{AbsorbRemainder: cfg.AbsorbRemainder}, retry, dispatcher, logger)
	renderer := report.NewPDFRenderer(report.Options{
		OfficeName: cfg.ReportOfficeName,
		LogoPath:   cfg.ReportLogoPath,
	}, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Clients:   clients,
		Ledger:    ledger,
		Reports:   reconciler,
		Snapshots: snapshots,
		Renderer:  renderer,
		Status:    dispatcher,
		Store:     res,
	}, logger)
	srv.OnShutdown(cacheMgr.Stop)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err.Error())
			}
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
