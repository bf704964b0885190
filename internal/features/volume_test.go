package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

func volumeZone(t *testing.T, closes, volumes []float64) *models.Zone {
	t.Helper()
	zone := testZone(t, map[string][]float64{"close": closes})
	require.NoError(t, zone.Data.SetColumn("volume", volumes))
	return zone
}

func TestVolumeDegenerateZoneIsFlat(t *testing.T) {
	zone := testZone(t, map[string][]float64{"close": {100, 101}})

	m, err := CalculateVolume(zone, "")
	require.NoError(t, err)
	assert.Equal(t, "flat", m.VolumeTrend)
	assert.Zero(t, m.AvgVolume)
}

func TestVolumeRisingTrend(t *testing.T) {
	zone := volumeZone(t,
		[]float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109},
		[]float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000},
	)

	m, err := CalculateVolume(zone, "")
	require.NoError(t, err)
	assert.Equal(t, "rising", m.VolumeTrend)
	assert.InDelta(t, 550, m.AvgVolume, 1e-9)
	assert.Greater(t, m.VolumeZScore, 0.0)
	// Volume and the rising close move together.
	assert.InDelta(t, 1.0, m.VolumeIndicatorCorr, 1e-9)
}

func TestVolumeFallingTrend(t *testing.T) {
	zone := volumeZone(t,
		[]float64{100, 101, 102, 103, 104},
		[]float64{500, 400, 300, 200, 100},
	)

	m, err := CalculateVolume(zone, "")
	require.NoError(t, err)
	assert.Equal(t, "falling", m.VolumeTrend)
	assert.Less(t, m.VolumeZScore, 0.0)
}

func TestVolumeConstantSeriesIsFlatWithZeroCorr(t *testing.T) {
	zone := volumeZone(t,
		[]float64{100, 101, 102, 103, 104},
		[]float64{300, 300, 300, 300, 300},
	)

	m, err := CalculateVolume(zone, "")
	require.NoError(t, err)
	assert.Equal(t, "flat", m.VolumeTrend)
	assert.Zero(t, m.VolumeIndicatorCorr)
	assert.Zero(t, m.VolumeZScore)
}
