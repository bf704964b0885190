package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantlab/zoneanalyzer/internal/cache"
	"github.com/quantlab/zoneanalyzer/internal/config"
	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/logging"
	"github.com/quantlab/zoneanalyzer/internal/models"
	"github.com/quantlab/zoneanalyzer/internal/persistence"
	"github.com/quantlab/zoneanalyzer/internal/pipeline"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Analyzer run failed")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	resultCache := cache.New(cfg.CacheOptions(), store, logger)
	defer func() {
		if err := resultCache.Close(); err != nil {
			logger.WithError(err).Warn("Closing result cache failed")
		}
	}()

	ds, err := models.LoadCSV(cfg.Data.InputPath)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"path": cfg.Data.InputPath,
		"rows": ds.Len(),
	}).Info("Dataset loaded")

	pipe := pipeline.New(indicators.NewProvider(logger), resultCache, logger)
	result, err := pipe.Run(ctx, ds, cfg.Pipeline)
	if err != nil {
		return err
	}
	resultCache.LogStats()

	return saveOutputs(cfg, result, logger)
}

func buildStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "badger":
		return cache.NewBadgerStore(cfg.Cache.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cache.NewRedisStore(client), nil
	default:
		return nil, nil
	}
}

func saveOutputs(cfg *config.Config, result *models.AnalysisResult, logger *logrus.Logger) error {
	if len(cfg.Data.Formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
		return err
	}
	names := map[string]string{
		"json":     "result.json",
		"csv":      "zones.csv",
		"snapshot": "result.snapshot",
	}
	for _, format := range cfg.Data.Formats {
		name, ok := names[format]
		if !ok {
			logger.WithField("format", format).Warn("Skipping unknown output format")
			continue
		}
		path := filepath.Join(cfg.Data.OutputDir, name)
		if err := persistence.Save(path, format, result); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"format": format,
			"path":   path,
		}).Info("Result saved")
	}
	return nil
}
