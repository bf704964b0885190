package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/zoneanalyzer/internal/analysis"
	"github.com/quantlab/zoneanalyzer/internal/cache"
	"github.com/quantlab/zoneanalyzer/internal/detection"
	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testDataset(t *testing.T) *models.Dataset {
	t.Helper()
	osc := []float64{-1, -2, -1.5, 1, 2, 1.5, -1, -2, -1, 1, 2, 3}
	n := len(osc)

	ds := models.NewDataset(n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64((i*29)%13)
		ds.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		ds.Columns["open"][i] = c
		ds.Columns["high"][i] = c + 2
		ds.Columns["low"][i] = c - 2
		ds.Columns["close"][i] = c
		ds.Columns["volume"][i] = 500 + float64(i*10)
	}
	require.NoError(t, ds.SetColumn("osc", osc))
	require.NoError(t, ds.Validate())
	return ds
}

func testConfig() Config {
	return Config{
		Indicators: []indicators.Spec{
			{Source: "column", Name: "osc"},
		},
		Detection: detection.Config{
			Strategy:    "zero_cross",
			Rules:       map[string]interface{}{"indicator_column": "osc"},
			MinDuration: 2,
		},
		Analysis: analysis.DefaultOptions(),
	}
}

func TestRunEndToEnd(t *testing.T) {
	ds := testDataset(t)
	pipe := New(indicators.NewProvider(testLogger()), nil, testLogger())

	result, err := pipe.Run(context.Background(), ds, testConfig())
	require.NoError(t, err)

	require.Len(t, result.Zones, 4)
	assert.Equal(t, "bear", result.Zones[0].Type)
	assert.Equal(t, "bull", result.Zones[1].Type)
	require.NotNil(t, result.Statistics)
	require.NotNil(t, result.Zones[0].Features.Swing)

	assert.NotEmpty(t, result.Metadata.RunID)
	assert.Equal(t, ds.Fingerprint(), result.Metadata.DatasetFingerprint)
	assert.Contains(t, result.Metadata.ConfigJSON, "zero_cross")
	assert.False(t, result.Metadata.CreatedAt.IsZero())
	require.NotNil(t, result.SourceDataset)
	assert.True(t, result.SourceDataset.HasColumn("osc"))
}

func TestRunReturnsCachedResult(t *testing.T) {
	ds := testDataset(t)
	resultCache := cache.New(cache.DefaultOptions(), nil, testLogger())
	pipe := New(indicators.NewProvider(testLogger()), resultCache, testLogger())
	ctx := context.Background()
	cfg := testConfig()

	first, err := pipe.Run(ctx, ds, cfg)
	require.NoError(t, err)
	second, err := pipe.Run(ctx, ds, cfg)
	require.NoError(t, err)

	// Same dataset and config hit the cache: the run is not redone.
	assert.Equal(t, first.Metadata.RunID, second.Metadata.RunID)

	require.NoError(t, resultCache.Reset(ctx))
	third, err := pipe.Run(ctx, ds, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first.Metadata.RunID, third.Metadata.RunID)
}

func TestRunDistinguishesConfigs(t *testing.T) {
	ds := testDataset(t)
	resultCache := cache.New(cache.DefaultOptions(), nil, testLogger())
	pipe := New(indicators.NewProvider(testLogger()), resultCache, testLogger())
	ctx := context.Background()

	first, err := pipe.Run(ctx, ds, testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.Detection.MinDuration = 3
	second, err := pipe.Run(ctx, ds, other)
	require.NoError(t, err)

	assert.NotEqual(t, first.Metadata.RunID, second.Metadata.RunID)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	pipe := New(indicators.NewProvider(testLogger()), nil, testLogger())
	ctx := context.Background()

	var dataErr *errs.DataError
	_, err := pipe.Run(ctx, models.NewDataset(0), testConfig())
	require.ErrorAs(t, err, &dataErr)

	ds := testDataset(t)
	cfg := testConfig()
	cfg.Detection.Strategy = ""
	var cfgErr *errs.ConfigurationError
	_, err = pipe.Run(ctx, ds, cfg)
	require.ErrorAs(t, err, &cfgErr)

	cfg = testConfig()
	cfg.Indicators = []indicators.Spec{{Source: "unknown", Name: "x"}}
	_, err = pipe.Run(ctx, ds, cfg)
	require.ErrorAs(t, err, &cfgErr)
}
