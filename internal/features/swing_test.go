package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZigzagSwingsOnAlternatingSeries(t *testing.T) {
	zone := testZone(t, map[string][]float64{
		"close": {100, 110, 99, 112, 100},
	})
	cfg := SwingConfig{Algorithm: "zigzag", Scope: "zone", Threshold: 0.05}

	m, err := CalculateSwings(zone, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, m.NumSwings)
	assert.Equal(t, 1, m.NumRallies)
	assert.Equal(t, 2, m.NumDrops)
	assert.InDelta(t, 13.0/99.0, m.AvgRallyAmplitude, 1e-9)
	assert.InDelta(t, (11.0/110.0+12.0/112.0)/2, m.AvgDropAmplitude, 1e-9)
	assert.Equal(t, 1.0, m.AvgRallyDuration)
	assert.InDelta(t, 0.5, m.CountRatio, 1e-9)
	assert.Equal(t, "zigzag", m.StrategyName)
	assert.Contains(t, m.StrategyParams, "threshold=0.05")
}

func TestSwingsDegenerateZoneYieldsZeroRecord(t *testing.T) {
	zone := testZone(t, map[string][]float64{"close": {100, 101}})
	cfg := DefaultSwingConfig()

	m, err := CalculateSwings(zone, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.NumSwings)
	assert.Zero(t, m.AvgRallyAmplitude)
	assert.Equal(t, "zigzag", m.StrategyName)
	assert.NotEmpty(t, m.StrategyParams)
}

func TestSwingsFlatSeriesYieldsZeroRecord(t *testing.T) {
	zone := testZone(t, map[string][]float64{"close": {100, 100, 100, 100, 100}})

	m, err := CalculateSwings(zone, DefaultSwingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.NumSwings)
}

func TestExtremaAlgorithmFindsInteriorPoints(t *testing.T) {
	zone := testZone(t, map[string][]float64{
		"close": {1, 2, 5, 2, 1, 2, 6, 3, 1, 2, 3},
	})
	cfg := SwingConfig{Algorithm: "extrema", Scope: "zone", Window: 2}

	m, err := CalculateSwings(zone, cfg, nil)
	require.NoError(t, err)
	assert.Greater(t, m.NumSwings, 0)
	assert.Equal(t, "extrema", m.StrategyName)
}

func TestSwingContextWindowKeepsNeighbors(t *testing.T) {
	sctx := &SwingContext{Points: []SwingPoint{
		{Index: 0, Price: 10, High: true},
		{Index: 5, Price: 5, High: false},
		{Index: 10, Price: 12, High: true},
		{Index: 15, Price: 7, High: false},
	}}

	window := sctx.Window(4, 6)
	require.Len(t, window, 3)
	assert.Equal(t, 0, window[0].Index)
	assert.Equal(t, 5, window[1].Index)
	assert.Equal(t, 10, window[2].Index)

	// A window past the last point only gains a left neighbor.
	window = sctx.Window(16, 20)
	require.Len(t, window, 1)
	assert.Equal(t, 15, window[0].Index)
}

func TestAlternatePointsCollapsesSameKind(t *testing.T) {
	points := []SwingPoint{
		{Index: 0, Price: 10, High: true},
		{Index: 2, Price: 12, High: true},
		{Index: 4, Price: 5, High: false},
		{Index: 6, Price: 4, High: false},
		{Index: 8, Price: 11, High: true},
	}
	out := alternatePoints(points)
	require.Len(t, out, 3)
	assert.Equal(t, 12.0, out[0].Price)
	assert.Equal(t, 4.0, out[1].Price)
	assert.Equal(t, 11.0, out[2].Price)
}
