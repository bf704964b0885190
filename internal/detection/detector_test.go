package detection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func testDataset(t *testing.T, extra map[string][]float64) *models.Dataset {
	t.Helper()
	n := 0
	for _, col := range extra {
		n = len(col)
		break
	}
	require.Greater(t, n, 0)

	ds := models.NewDataset(n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ds.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		ds.Columns["open"][i] = 100
		ds.Columns["high"][i] = 101
		ds.Columns["low"][i] = 99
		ds.Columns["close"][i] = 100
		ds.Columns["volume"][i] = 1000
	}
	for name, col := range extra {
		require.NoError(t, ds.SetColumn(name, col))
	}
	require.NoError(t, ds.Validate())
	return ds
}

func TestZeroCrossSegmentsBySign(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {-1, -0.5, 1, 2, -3},
	})
	d, err := New("zero_cross")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy:    "zero_cross",
		Rules:       map[string]interface{}{"indicator_column": "osc"},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 3)

	assert.Equal(t, "bear", zones[0].Type)
	assert.Equal(t, 0, zones[0].StartIndex)
	assert.Equal(t, 1, zones[0].EndIndex)
	assert.Equal(t, "bull", zones[1].Type)
	assert.Equal(t, 2, zones[1].StartIndex)
	assert.Equal(t, 3, zones[1].EndIndex)
	assert.Equal(t, "bear", zones[2].Type)
	assert.Equal(t, 4, zones[2].StartIndex)
	assert.Equal(t, 4, zones[2].EndIndex)

	for i, zone := range zones {
		assert.Equal(t, i, zone.ID)
		assert.Equal(t, zone.EndIndex-zone.StartIndex+1, zone.Duration)
		assert.Equal(t, ds.Timestamps[zone.StartIndex], zone.StartTime)
		assert.Equal(t, ds.Timestamps[zone.EndIndex], zone.EndTime)
		assert.Equal(t, zone.Duration, zone.Data.Len())
		assert.Equal(t, "zero_cross", zone.Detection.Strategy)
		assert.Equal(t, "osc", zone.Detection.IndicatorColumn())
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {-1, -0.5, 1, 2, -3},
	})
	d, err := New("zero_cross")
	require.NoError(t, err)
	cfg := Config{
		Strategy:    "zero_cross",
		Rules:       map[string]interface{}{"indicator_column": "osc"},
		MinDuration: 1,
	}

	first, err := d.Detect(ds, cfg)
	require.NoError(t, err)
	second, err := d.Detect(ds, cfg)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].StartIndex, second[i].StartIndex)
		assert.Equal(t, first[i].EndIndex, second[i].EndIndex)
	}
}

func TestDetectDetachesRuleParamsFromConfig(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {-1, -0.5, 1, 2, -3},
	})

	d, err := New("zero_cross")
	require.NoError(t, err)
	cfg := Config{
		Strategy:    "zero_cross",
		Rules:       map[string]interface{}{"indicator_column": "osc"},
		MinDuration: 1,
	}
	zones, err := d.Detect(ds, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, zones)

	cfg.Rules["indicator_column"] = "rewritten"
	assert.Equal(t, "osc", zones[0].Detection.RuleParams["indicator_column"],
		"zone provenance survives later config mutation")

	p, err := New("preloaded")
	require.NoError(t, err)
	cfg = Config{
		Strategy: "preloaded",
		Rules: map[string]interface{}{
			"zones": []interface{}{
				map[string]interface{}{"start_index": 0, "end_index": 1, "type": "bear"},
			},
			"indicator_column": "osc",
		},
		MinDuration: 1,
	}
	zones, err = p.Detect(ds, cfg)
	require.NoError(t, err)
	require.Len(t, zones, 1)

	cfg.Rules["indicator_column"] = "rewritten"
	assert.Equal(t, "osc", zones[0].Detection.RuleParams["indicator_column"])
}

func TestZeroCrossMinDurationDropsShortRuns(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {-1, -0.5, 1, 2, -3},
	})
	d, err := New("zero_cross")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy:    "zero_cross",
		Rules:       map[string]interface{}{"indicator_column": "osc"},
		MinDuration: 2,
	})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	// The short trailing run is dropped, never merged into a neighbor.
	assert.Equal(t, "bear", zones[0].Type)
	assert.Equal(t, "bull", zones[1].Type)
	assert.Equal(t, 3, zones[1].EndIndex)
}

func TestZeroCrossZeroAndNaNBreakRuns(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {1, 0, 1, math.NaN(), 1},
	})
	d, err := New("zero_cross")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy:    "zero_cross",
		Rules:       map[string]interface{}{"indicator_column": "osc"},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 3)
	for _, zone := range zones {
		assert.Equal(t, "bull", zone.Type)
		assert.Equal(t, 1, zone.Duration)
	}
}

func TestThresholdSegmentsAboveAndBelow(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"rsi": {72, 75, 50, 20, 15, 60},
	})
	d, err := New("threshold")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy: "threshold",
		Rules: map[string]interface{}{
			"indicator_column": "rsi",
			"upper":            70.0,
			"lower":            30.0,
		},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	assert.Equal(t, "overbought", zones[0].Type)
	assert.Equal(t, 0, zones[0].StartIndex)
	assert.Equal(t, 1, zones[0].EndIndex)
	assert.Equal(t, "oversold", zones[1].Type)
	assert.Equal(t, 3, zones[1].StartIndex)
	assert.Equal(t, 4, zones[1].EndIndex)
}

func TestThresholdBoundaryValuesAreGaps(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"rsi": {70, 71, 30, 29},
	})
	d, err := New("threshold")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy: "threshold",
		Rules: map[string]interface{}{
			"indicator_column": "rsi",
			"upper":            70.0,
			"lower":            30.0,
		},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, 1, zones[0].StartIndex)
	assert.Equal(t, 3, zones[1].StartIndex)
}

func TestLineCrossSegmentsByDifference(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"macd":   {1, 3, 2, 1, 0},
		"signal": {2, 2, 2, 2, 2},
	})
	d, err := New("line_cross")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy: "line_cross",
		Rules: map[string]interface{}{
			"line1_column": "macd",
			"line2_column": "signal",
		},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 3)

	assert.Equal(t, "bear", zones[0].Type) // 1 < 2
	assert.Equal(t, "bull", zones[1].Type) // 3 > 2, tie at index 2 is a gap
	assert.Equal(t, 1, zones[1].Duration)
	assert.Equal(t, "bear", zones[2].Type)
	assert.Equal(t, 3, zones[2].StartIndex)
	assert.Equal(t, []string{"macd", "signal"}, zones[0].Detection.IndicatorColumns)
}

func TestCombinedRulesAndLogic(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"rsi": {80, 75, 40, 20, 85},
		"adx": {30, 10, 30, 30, 40},
	})
	d, err := New("combined_rules")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy: "combined_rules",
		Rules: map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"column": "rsi", "op": ">", "value": 70.0},
				map[string]interface{}{"column": "adx", "op": ">=", "value": 25.0},
			},
			"type_map": map[string]interface{}{"true": "hot", "false": "cold"},
			"logic":    "and",
		},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 3)

	assert.Equal(t, "hot", zones[0].Type)
	assert.Equal(t, 0, zones[0].StartIndex)
	assert.Equal(t, "cold", zones[1].Type)
	assert.Equal(t, 1, zones[1].StartIndex)
	assert.Equal(t, 3, zones[1].EndIndex)
	assert.Equal(t, "hot", zones[2].Type)
	assert.Equal(t, 4, zones[2].StartIndex)
}

func TestCombinedRulesRejectsBadConfig(t *testing.T) {
	ds := testDataset(t, map[string][]float64{"rsi": {1, 2, 3}})
	d, err := New("combined_rules")
	require.NoError(t, err)

	_, err = d.Detect(ds, Config{
		Strategy: "combined_rules",
		Rules: map[string]interface{}{
			"conditions": []interface{}{},
			"type_map":   map[string]interface{}{"true": "a", "false": "b"},
		},
	})
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = d.Detect(ds, Config{
		Strategy: "combined_rules",
		Rules: map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"column": "rsi", "op": "~", "value": 1.0},
			},
			"type_map": map[string]interface{}{"true": "a", "false": "b"},
		},
	})
	assert.Error(t, err)
}

func TestPreloadedAdoptsMarkers(t *testing.T) {
	ds := testDataset(t, map[string][]float64{"osc": {1, 2, 3, 4, 5, 6}})
	d, err := New("preloaded")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy: "preloaded",
		Rules: map[string]interface{}{
			"zones": []interface{}{
				map[string]interface{}{"start_index": 3, "end_index": 5, "type": "late"},
				map[string]interface{}{"start_index": 0, "end_index": 1, "type": "early"},
			},
			"indicator_column": "osc",
		},
		MinDuration: 1,
	})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	// Markers come back ordered by start index regardless of input order.
	assert.Equal(t, "early", zones[0].Type)
	assert.Equal(t, "late", zones[1].Type)
	assert.Equal(t, "osc", zones[0].Detection.IndicatorColumn())
}

func TestPreloadedRejectsOverlapAndBounds(t *testing.T) {
	ds := testDataset(t, map[string][]float64{"osc": {1, 2, 3, 4}})
	d, err := New("preloaded")
	require.NoError(t, err)

	_, err = d.Detect(ds, Config{
		Strategy: "preloaded",
		Rules: map[string]interface{}{
			"zones": []interface{}{
				map[string]interface{}{"start_index": 0, "end_index": 2, "type": "a"},
				map[string]interface{}{"start_index": 2, "end_index": 3, "type": "b"},
			},
		},
	})
	assert.Error(t, err)

	_, err = d.Detect(ds, Config{
		Strategy: "preloaded",
		Rules: map[string]interface{}{
			"zones": []interface{}{
				map[string]interface{}{"start_index": 1, "end_index": 9, "type": "a"},
			},
		},
	})
	assert.Error(t, err)
}

func TestAllowedZoneTypesFilter(t *testing.T) {
	ds := testDataset(t, map[string][]float64{
		"osc": {-1, -0.5, 1, 2, -3},
	})
	d, err := New("zero_cross")
	require.NoError(t, err)

	zones, err := d.Detect(ds, Config{
		Strategy:         "zero_cross",
		Rules:            map[string]interface{}{"indicator_column": "osc"},
		MinDuration:      1,
		AllowedZoneTypes: []string{"bull"},
	})
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "bull", zones[0].Type)
	assert.Equal(t, 0, zones[0].ID)
}

func TestUnknownStrategyListsKnownOnes(t *testing.T) {
	_, err := New("nope")
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "zero_cross")
}

func TestMissingRequiredRuleNamesKey(t *testing.T) {
	ds := testDataset(t, map[string][]float64{"osc": {1, 2, 3}})
	d, err := New("threshold")
	require.NoError(t, err)

	_, err = d.Detect(ds, Config{
		Strategy: "threshold",
		Rules:    map[string]interface{}{"indicator_column": "osc"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upper")
}
