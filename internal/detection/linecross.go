package detection

import (
	"math"

	"github.com/quantlab/zoneanalyzer/internal/indicators"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	Register(&LineCrossing{})
}

// LineCrossing segments a dataset by the sign of the difference between
// two columns, typically a fast and a slow line of the same indicator.
// line1 above line2 is "bull", below is "bear"; an exact tie or NaN in
// either line breaks the run.
type LineCrossing struct{}

// Name returns the registry name of the strategy.
func (l *LineCrossing) Name() string { return "line_cross" }

// RequiredRules lists the rule keys Detect validates before running.
func (l *LineCrossing) RequiredRules() []string {
	return []string{"line1_column", "line2_column"}
}

// Detect segments the dataset into bull and bear zones.
func (l *LineCrossing) Detect(ds *models.Dataset, cfg Config) ([]*models.Zone, error) {
	if err := validateRules(l, cfg); err != nil {
		return nil, err
	}
	col1 := indicators.StringParam(cfg.Rules, "line1_column", "")
	col2 := indicators.StringParam(cfg.Rules, "line2_column", "")
	line1, err := ds.Column(col1)
	if err != nil {
		return nil, err
	}
	line2, err := ds.Column(col2)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(line1))
	for i := range line1 {
		diff := line1[i] - line2[i]
		switch {
		case math.IsNaN(diff):
		case diff > 0:
			labels[i] = "bull"
		case diff < 0:
			labels[i] = "bear"
		}
	}

	ctx := models.DetectionContext{
		Strategy:         l.Name(),
		IndicatorColumns: []string{col1, col2},
		RuleParams:       cfg.Rules,
	}
	return zonesFromLabels(ds, labels, cfg, ctx)
}
