package detection

import (
	"math"

	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&Threshold{})
}

// Threshold produces "overbought" zones while an indicator is strictly
// above the upper threshold and "oversold" zones while it is strictly
// below the lower one. The region between thresholds produces no zone:
// a gap, never a merge.
type Threshold struct{}

// Name returns the registry name of the strategy.
func (t *Threshold) Name() string { return "threshold" }

// RequiredRules lists the rule keys Detect validates before running.
func (t *Threshold) RequiredRules() []string {
	return []string{"indicator_column", "upper", "lower"}
}

// Detect segments the dataset into overbought and oversold zones.
func (t *Threshold) Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error) {
	if err := validateRules(t, cfg); err != nil {
		return nil, err
	}
	column := indicators.StringParam(cfg.Rules, "indicator_column", "")
	values, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	upper := indicators.FloatParam(cfg.Rules, "upper", 70)
	lower := indicators.FloatParam(cfg.Rules, "lower", 30)

	labels := make([]string, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case v > upper:
			labels[i] = "overbought"
		case v < lower:
			labels[i] = "oversold"
		}
	}

	ctx := models.DetectionContext{
		Strategy:         t.Name(),
		IndicatorColumns: []string{column},
		RuleParams:       cfg.Rules,
	}
	return zonesFromLabels(ds, labels, cfg, ctx)
}
