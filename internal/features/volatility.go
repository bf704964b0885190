package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// VolatilityCalculator computes price range and return dispersion
// metrics for a zone.
type VolatilityCalculator interface {
	Name() string
	Calculate(zone *models.Zone) (*models.VolatilityMetrics, error)
}

var volatilityRegistry = newRegistry[VolatilityCalculator]()

// RegisterVolatilityCalculator adds a volatility algorithm to the
// registry.
func RegisterVolatilityCalculator(c VolatilityCalculator) {
	volatilityRegistry.register(c.Name(), c)
}

func init() {
	RegisterVolatilityCalculator(&defaultVolatility{})
}

// CalculateVolatility runs the named algorithm ("default" when empty).
func CalculateVolatility(zone *models.Zone, algorithm string) (*models.VolatilityMetrics, error) {
	if algorithm == "" {
		algorithm = "default"
	}
	calc, err := volatilityRegistry.lookup("volatility", algorithm)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(zone)
}

// Regime thresholds on the per-bar return standard deviation.
const (
	lowVolThreshold    = 0.005
	mediumVolThreshold = 0.02
	volOfVolWindow     = 5
)

type defaultVolatility struct{}

func (v *defaultVolatility) Name() string { return "default" }

func (v *defaultVolatility) Calculate(zone *models.Zone) (*models.VolatilityMetrics, error) {
	if zone.Data == nil || zone.Data.Len() < 3 {
		return &models.VolatilityMetrics{Regime: "low"}, nil
	}
	highs, err := zone.Data.Column("high")
	if err != nil {
		return nil, err
	}
	lows, err := zone.Data.Column("low")
	if err != nil {
		return nil, err
	}
	closes, err := zone.Data.Column("close")
	if err != nil {
		return nil, err
	}

	n := len(closes)
	ranges := make([]float64, n)
	trueRanges := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		if closes[i] != 0 {
			ranges[i] = (highs[i] - lows[i]) / closes[i]
		}
		if i > 0 {
			tr := math.Max(highs[i]-lows[i],
				math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
			if closes[i] != 0 {
				trueRanges = append(trueRanges, tr/closes[i])
			}
		}
	}

	returns := make([]float64, 0, n-1)
	var upside, downside []float64
	for i := 1; i < n; i++ {
		if closes[i-1] == 0 {
			continue
		}
		r := (closes[i] - closes[i-1]) / closes[i-1]
		returns = append(returns, r)
		if r > 0 {
			upside = append(upside, r)
		} else if r < 0 {
			downside = append(downside, r)
		}
	}

	m := &models.VolatilityMetrics{
		AvgRange:     mean(ranges),
		AvgTrueRange: mean(trueRanges),
	}
	_, m.MaxRange = minMax(ranges)
	if len(returns) >= 2 {
		m.ReturnStd = stat.StdDev(returns, nil)
	}
	if len(upside) >= 2 {
		m.UpsideDeviation = stat.StdDev(upside, nil)
	}
	if len(downside) >= 2 {
		m.DownsideDeviation = stat.StdDev(downside, nil)
	}
	m.VolOfVol = rollingStdDispersion(returns, volOfVolWindow)
	if closes[0] != 0 {
		m.ZoneReturn = (closes[n-1] - closes[0]) / closes[0]
	}
	m.MaxDrawdown = maxDrawdown(closes)

	switch {
	case m.ReturnStd < lowVolThreshold:
		m.Regime = "low"
	case m.ReturnStd < mediumVolThreshold:
		m.Regime = "medium"
	default:
		m.Regime = "high"
	}
	return m, nil
}

// rollingStdDispersion is the standard deviation of rolling window
// return standard deviations: how unstable the volatility itself is.
func rollingStdDispersion(returns []float64, window int) float64 {
	if len(returns) < window+2 {
		return 0
	}
	stds := make([]float64, 0, len(returns)-window+1)
	for i := window; i <= len(returns); i++ {
		stds = append(stds, stat.StdDev(returns[i-window:i], nil))
	}
	if len(stds) < 2 {
		return 0
	}
	return stat.StdDev(stds, nil)
}

// maxDrawdown is the largest relative peak-to-trough decline of the
// close series.
func maxDrawdown(closes []float64) float64 {
	peak := closes[0]
	maxDD := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
