package viz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

func testResult(t *testing.T) (*models.Dataset, *models.AnalysisResult) {
	t.Helper()
	ds := models.NewDataset(6)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		ds.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		ds.Columns["open"][i] = 100
		ds.Columns["high"][i] = 101
		ds.Columns["low"][i] = 99
		ds.Columns["close"][i] = 100 + float64(i)
		ds.Columns["volume"][i] = 1000
	}
	require.NoError(t, ds.SetColumn("osc", []float64{1, 2, 1, -1, -2, -1}))
	require.NoError(t, ds.Validate())

	makeZone := func(id int, zoneType string, start, end int) *models.Zone {
		data, err := ds.Slice(start, end)
		require.NoError(t, err)
		return &models.Zone{
			ID:         id,
			Type:       zoneType,
			StartIndex: start,
			EndIndex:   end,
			StartTime:  ds.Timestamps[start],
			EndTime:    ds.Timestamps[end],
			Duration:   end - start + 1,
			Data:       data,
			Detection: models.DetectionContext{
				Strategy:         "zero_cross",
				IndicatorColumns: []string{"osc"},
			},
			Features: models.FeatureSet{
				Swing: &models.SwingMetrics{NumSwings: 1},
			},
		}
	}

	result := &models.AnalysisResult{
		Zones: []*models.Zone{
			makeZone(0, "bull", 0, 2),
			makeZone(1, "bear", 3, 5),
		},
		Statistics: &models.DistributionStats{
			Overall: &models.TypeStats{Count: 2},
			PerType: map[string]*models.TypeStats{
				"bull": {Count: 1, Features: map[string]models.SummaryStat{"duration": {Mean: 3}}},
				"bear": {Count: 1, Features: map[string]models.SummaryStat{"duration": {Mean: 3}}},
			},
		},
		Hypotheses: []models.HypothesisTest{
			{Name: "duration_bull_vs_bear", Method: "mann_whitney_u", PValue: 0.2},
		},
		Clustering: &models.ClusteringResult{K: 2, Sizes: []int{1, 1}},
		Regression: &models.RegressionResult{
			Target:       "duration",
			FeatureNames: []string{"shape.smoothness"},
			Coefficients: []float64{0.5},
			RSquared:     0.4,
			SampleSize:   2,
		},
	}
	return ds, result
}

func TestBuildOverview(t *testing.T) {
	ds, result := testResult(t)

	req, err := BuildOverview(ds, result)
	require.NoError(t, err)
	assert.Equal(t, KindOverview, req.Kind)
	require.Len(t, req.Series, 1)
	assert.Len(t, req.Series[0].Y, 6)
	require.Len(t, req.Spans, 2)
	assert.Equal(t, "bull#0", req.Spans[0].Label)
	assert.Equal(t, ds.Timestamps[3], req.Spans[1].Start)
}

func TestBuildZoneDetailIncludesIndicator(t *testing.T) {
	_, result := testResult(t)

	req, err := BuildZoneDetail(result.Zones[0])
	require.NoError(t, err)
	assert.Equal(t, KindZoneDetail, req.Kind)
	require.Len(t, req.Series, 2)
	assert.Equal(t, "close", req.Series[0].Name)
	assert.Equal(t, "osc", req.Series[1].Name)
	require.Len(t, req.Tables, 1)
	assert.NotEmpty(t, req.Tables[0].Rows)

	result.Zones[0].Data = nil
	_, err = BuildZoneDetail(result.Zones[0])
	assert.Error(t, err)
}

func TestBuildComparison(t *testing.T) {
	_, result := testResult(t)

	req, err := BuildComparison(result, "duration")
	require.NoError(t, err)
	require.Len(t, req.Tables, 1)
	assert.Len(t, req.Tables[0].Rows, 2)
	// Rows come out in sorted type order.
	assert.Equal(t, "bear", req.Tables[0].Rows[0][0])

	_, err = BuildComparison(result, "not.a.feature")
	assert.Error(t, err)

	result.Statistics = nil
	_, err = BuildComparison(result, "duration")
	assert.Error(t, err)
}

func TestBuildStatisticsCollectsArtifacts(t *testing.T) {
	_, result := testResult(t)

	req := BuildStatistics(result)
	assert.Equal(t, KindStatistics, req.Kind)
	// Hypotheses, clustering and regression each contribute a table.
	assert.Len(t, req.Tables, 3)

	result.Clustering = nil
	result.Regression = nil
	req = BuildStatistics(result)
	assert.Len(t, req.Tables, 1)
}
