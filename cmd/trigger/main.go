// Command trigger calls the server's protected daily auto-entry endpoint.
// It is meant to run from an external scheduler once per day.
package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/config"
	"github.com/mamadbah2/milktracker/pkg/clients/milktracker"
	"github.com/mamadbah2/milktracker/pkg/logger"
)

func main() {
	cfg, err := config.LoadTrigger("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := milktracker.NewClient(cfg.BaseURL, cfg.CronSecret)
	resp, err := client.TriggerDailyEntry(ctx)
	if err != nil {
		baseLogger.Error("daily entry trigger failed", zap.String("base_url", cfg.BaseURL), zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}

	baseLogger.Info("daily entry triggered",
		zap.String("status", resp.Data.Status),
		zap.String("date", resp.Data.Date),
		zap.String("message", resp.Message))
}
