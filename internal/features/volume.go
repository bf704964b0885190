package features

import (
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// VolumeCalculator relates traded volume to the detection indicator
// inside a zone.
type VolumeCalculator interface {
	Name() string
	Calculate(zone *models.Zone) (*models.VolumeMetrics, error)
}

var volumeRegistry = newRegistry[VolumeCalculator]()

// RegisterVolumeCalculator adds a volume algorithm to the registry.
func RegisterVolumeCalculator(c VolumeCalculator) {
	volumeRegistry.register(c.Name(), c)
}

func init() {
	RegisterVolumeCalculator(&defaultVolume{})
}

// CalculateVolume runs the named algorithm ("default" when empty).
func CalculateVolume(zone *models.Zone, algorithm string) (*models.VolumeMetrics, error) {
	if algorithm == "" {
		algorithm = "default"
	}
	calc, err := volumeRegistry.lookup("volume", algorithm)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(zone)
}

// Relative slope below which the volume trend is considered flat.
const flatVolumeSlope = 0.01

type defaultVolume struct{}

func (v *defaultVolume) Name() string { return "default" }

func (v *defaultVolume) Calculate(zone *models.Zone) (*models.VolumeMetrics, error) {
	if zone.Data == nil || zone.Data.Len() < 3 {
		return &models.VolumeMetrics{VolumeTrend: "flat"}, nil
	}
	volumes, err := zone.Data.Column("volume")
	if err != nil {
		return nil, err
	}
	indicator := indicatorSeries(zone)

	m := &models.VolumeMetrics{AvgVolume: mean(volumes)}

	if stat.StdDev(volumes, nil) > 0 && stat.StdDev(indicator, nil) > 0 {
		m.VolumeIndicatorCorr = stat.Correlation(volumes, indicator, nil)
	}

	xs := make([]float64, len(volumes))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, volumes, nil, false)
	switch relSlope := safeRatio(slope*float64(len(volumes)), m.AvgVolume); {
	case relSlope > flatVolumeSlope:
		m.VolumeTrend = "rising"
	case relSlope < -flatVolumeSlope:
		m.VolumeTrend = "falling"
	default:
		m.VolumeTrend = "flat"
	}

	if std := stat.StdDev(volumes, nil); std > 0 {
		m.VolumeZScore = (volumes[len(volumes)-1] - m.AvgVolume) / std
	}
	return m, nil
}
