// Package pipeline wires the zone analysis stages end to end: indicator
// provisioning, zone detection, the staged analyzer, and the result
// cache in front of all of it.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quantlab/zoneanalyzer/internal/analysis"
	"github.com/quantlab/zoneanalyzer/internal/cache"
	"github.com/quantlab/zoneanalyzer/internal/detection"
	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Config is the full per-run configuration: which indicators to merge,
// how to segment zones, and which analyzer stages to run. Its canonical
// JSON participates in the cache key, so equal configs share results.
type Config struct {
	Indicators []indicators.Spec `json:"indicators" mapstructure:"indicators"`
	Detection  detection.Config  `json:"detection" mapstructure:"detection"`
	Analysis   analysis.Options  `json:"analysis" mapstructure:"analysis"`
}

// ZonePipeline runs datasets through provisioning, detection and
// analysis, consulting the result cache first.
type ZonePipeline struct {
	provider *indicators.Provider
	cache    *cache.ResultCache
	logger   *logrus.Logger
}

// New assembles a pipeline. The cache may be nil, which disables
// caching entirely.
func New(provider *indicators.Provider, resultCache *cache.ResultCache, logger *logrus.Logger) *ZonePipeline {
	return &ZonePipeline{provider: provider, cache: resultCache, logger: logger}
}

// Run analyzes the dataset under cfg. Identical dataset/config pairs hit
// the cache; concurrent identical runs share one computation.
func (p *ZonePipeline) Run(ctx context.Context, ds *models.Dataset, cfg Config) (*models.AnalysisResult, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Detection.Strategy == "" {
		return nil, errs.NewConfigurationError("detection strategy is required")
	}

	fingerprint := ds.Fingerprint()
	key, err := cache.Key(fingerprint, cfg)
	if err != nil {
		return nil, errs.NewConfigurationErrorf("serializing run config: %v", err)
	}

	if p.cache == nil {
		return p.compute(ctx, ds, cfg, fingerprint, key)
	}
	return p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*models.AnalysisResult, error) {
		return p.compute(ctx, ds, cfg, fingerprint, key)
	})
}

func (p *ZonePipeline) compute(ctx context.Context, ds *models.Dataset, cfg Config, fingerprint, key string) (*models.AnalysisResult, error) {
	started := time.Now()

	enriched := ds
	for _, spec := range cfg.Indicators {
		var err error
		if enriched, err = p.provider.Provide(enriched, spec); err != nil {
			return nil, err
		}
	}

	detector, err := detection.New(cfg.Detection.Strategy)
	if err != nil {
		return nil, err
	}
	zones, err := detector.Detect(enriched, cfg.Detection)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(logrus.Fields{
		"strategy": cfg.Detection.Strategy,
		"zones":    len(zones),
	}).Info("Zone detection completed")

	analyzer := analysis.New(cfg.Analysis, p.logger)
	result, err := analyzer.Analyze(ctx, enriched, zones)
	if err != nil {
		return nil, err
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, errs.NewConfigurationErrorf("serializing run config: %v", err)
	}
	result.SourceDataset = enriched
	result.Metadata.RunID = uuid.New().String()
	result.Metadata.CreatedAt = time.Now().UTC()
	result.Metadata.DatasetFingerprint = fingerprint
	result.Metadata.ConfigJSON = string(configJSON)

	p.logger.WithFields(logrus.Fields{
		"run_id":  result.Metadata.RunID,
		"key":     key,
		"zones":   len(zones),
		"elapsed": time.Since(started).String(),
	}).Info("Pipeline run completed")
	return result, nil
}
