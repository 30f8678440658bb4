package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/config"
	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/repository"
	"github.com/mamadbah2/milktracker/internal/repository/mongodb"
	"github.com/mamadbah2/milktracker/internal/repository/sheets"
	"github.com/mamadbah2/milktracker/internal/repository/sqlite"
	"github.com/mamadbah2/milktracker/internal/scheduler"
	"github.com/mamadbah2/milktracker/internal/server/handlers"
	"github.com/mamadbah2/milktracker/internal/server/middleware"
	"github.com/mamadbah2/milktracker/internal/server/router"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
	"github.com/mamadbah2/milktracker/internal/service/export"
	"github.com/mamadbah2/milktracker/internal/service/ledger"
	"github.com/mamadbah2/milktracker/internal/service/payments"
	"github.com/mamadbah2/milktracker/internal/service/settings"
	"github.com/mamadbah2/milktracker/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	seed := models.Defaults{
		AutoEntryEnabled: true,
		DefaultQuantity:  cfg.AutoEntry.SeedQuantity,
		DefaultRate:      cfg.AutoEntry.SeedRate,
	}
	if err := store.EnsureDefaults(context.Background(), seed); err != nil {
		baseLogger.Fatal("failed to seed milk defaults", zap.Error(err))
	}

	normalizer := calendar.NewNormalizer(cfg.AutoEntry.Location)

	ledgerSvc := ledger.NewService(store, normalizer, baseLogger.Named("svc.ledger"))
	paymentSvc := payments.NewService(store, normalizer, baseLogger.Named("svc.payments"))
	settingsSvc := settings.NewService(store, normalizer, baseLogger.Named("svc.settings"))
	autoEntrySvc := autoentry.NewService(store, baseLogger.Named("svc.autoentry"))

	var exporter handlers.Exporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = export.NewService(sheetsRepo, ledgerSvc, baseLogger.Named("svc.export"))
		baseLogger.Info("google sheets export enabled")
	} else {
		baseLogger.Warn("google sheets credentials missing, month export disabled")
	}

	limiter := middleware.NewRateLimiter()
	engine := router.New(router.Handlers{
		Milk:     handlers.NewMilkHandler(ledgerSvc, exporter, normalizer, baseLogger.Named("handlers.milk")),
		Payments: handlers.NewPaymentHandler(paymentSvc, baseLogger.Named("handlers.payments")),
		Settings: handlers.NewSettingsHandler(settingsSvc, baseLogger.Named("handlers.settings")),
		Cron:     handlers.NewCronHandler(autoEntrySvc, normalizer, baseLogger.Named("handlers.cron")),
	}, router.Options{
		AppPIN:             cfg.Auth.AppPIN,
		CronSecret:         cfg.Auth.CronSecret,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		TrustedProxies:     cfg.Server.TrustedProxies,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Limiter:            limiter,
	}, baseLogger.Named("router"))

	if cfg.AutoEntry.CronSchedule != "" {
		sched := scheduler.NewScheduler(cfg.AutoEntry.CronSchedule, autoEntrySvc, normalizer, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongoDB:
		return mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	default:
		return sqlite.Open(cfg.Store.SQLitePath, baseLogger.Named("repo.sqlite"))
	}
}
