package features

import (
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// ShapeCalculator computes distributional shape metrics for a zone's
// indicator series.
type ShapeCalculator interface {
	Name() string
	Calculate(zone *models.Zone) (*models.ShapeMetrics, error)
}

var shapeRegistry = newRegistry[ShapeCalculator]()

// RegisterShapeCalculator adds a shape algorithm to the registry.
func RegisterShapeCalculator(c ShapeCalculator) {
	shapeRegistry.register(c.Name(), c)
}

func init() {
	RegisterShapeCalculator(&defaultShape{})
}

// CalculateShape runs the named shape algorithm ("default" when empty).
func CalculateShape(zone *models.Zone, algorithm string) (*models.ShapeMetrics, error) {
	if algorithm == "" {
		algorithm = "default"
	}
	calc, err := shapeRegistry.lookup("shape", algorithm)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(zone)
}

// defaultShape reports skewness, excess kurtosis and a smoothness score
// of the detection indicator inside the zone. Smoothness is
// 1/(1+roughness) where roughness is the mean consecutive-difference
// magnitude relative to the series' own standard deviation, so a flat
// or slowly drifting series scores near 1 and a jagged one near 0.
type defaultShape struct{}

func (s *defaultShape) Name() string { return "default" }

func (s *defaultShape) Calculate(zone *models.Zone) (*models.ShapeMetrics, error) {
	if zone.Data == nil || zone.Data.Len() < 3 {
		return &models.ShapeMetrics{}, nil
	}
	series := indicatorSeries(zone)

	std := stat.StdDev(series, nil)
	m := &models.ShapeMetrics{
		Skewness: stat.Skew(series, nil),
		Kurtosis: stat.ExKurtosis(series, nil),
	}

	if std == 0 {
		m.Skewness = 0
		m.Kurtosis = 0
		m.Smoothness = 1
		return m, nil
	}

	diffSum := 0.0
	for i := 1; i < len(series); i++ {
		diffSum += abs(series[i] - series[i-1])
	}
	roughness := diffSum / float64(len(series)-1) / std
	m.Smoothness = 1 / (1 + roughness)
	return m, nil
}
