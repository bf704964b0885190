package detection

import (
	"math"

	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&ZeroCrossing{})
}

// ZeroCrossing segments a dataset by the sign of one indicator column,
// optionally smoothed with a trailing moving average first. A zone is a
// maximal run of one sign: positive runs are "bull", negative runs are
// "bear". Zero and NaN values break runs.
type ZeroCrossing struct{}

// Name returns the registry name of the strategy.
func (z *ZeroCrossing) Name() string { return "zero_cross" }

// RequiredRules lists the rule keys Detect validates before running.
func (z *ZeroCrossing) RequiredRules() []string { return []string{"indicator_column"} }

// Detect segments the dataset into bull and bear zones.
func (z *ZeroCrossing) Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error) {
	if err := validateRules(z, cfg); err != nil {
		return nil, err
	}
	column := indicators.StringParam(cfg.Rules, "indicator_column", "")
	values, err := ds.Column(column)
	if err != nil {
		return nil, err
	}

	if window := indicators.IntParam(cfg.Rules, "smooth_window", 0); window > 1 {
		values = trailingMean(values, window)
	}

	labels := make([]string, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			// warm-up rows carry no signal
		case v > 0:
			labels[i] = "bull"
		case v < 0:
			labels[i] = "bear"
		}
	}

	ctx := models.DetectionContext{
		Strategy:         z.Name(),
		IndicatorColumns: []string{column},
		RuleParams:       cfg.Rules,
	}
	return zonesFromLabels(ds, labels, cfg, ctx)
}

// trailingMean smooths a series with a fixed-width trailing moving
// average. Leading rows use the partial window so no rows are lost.
func trailingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			sum += values[j]
			n++
		}
		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}
