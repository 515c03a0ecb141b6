package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rounds-backend/config"
	"rounds-backend/internal/consolidate"
	"rounds-backend/internal/db"
	"rounds-backend/internal/ledger"
	"rounds-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load configuration", zap.String("path", configPath), zap.Error(err))
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	appStore := store.NewGormStore(gormDB)
	sigLedger := ledger.New(gormDB, appStore)

	if cfg.Consolidation.SourcePath == "" {
		logger.Info("no legacy source configured, migrations only")
		return
	}

	// SIGINT/SIGTERM stops dispatching after the in-flight source records;
	// a re-run resumes via the idempotence keys.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := consolidate.New(appStore, sigLedger, logger, consolidate.Options{
		Workers:   cfg.Consolidation.Workers,
		WriteRate: rate.Limit(cfg.Consolidation.RateLimitPerSec),
	})

	report, err := engine.RunSource(ctx, consolidate.FileSource{Path: cfg.Consolidation.SourcePath})
	if err != nil {
		logger.Fatal("consolidation failed", zap.Error(err))
	}

	for _, src := range report.Sources {
		for _, leafErr := range src.Errors {
			logger.Warn("leaf not converted",
				zap.String("source_id", src.SourceID),
				zap.String("leaf", leafErr.Error()))
		}
	}
	logger.Info("consolidation complete",
		zap.String("run_id", report.RunID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed_leaves", report.Failed))
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
