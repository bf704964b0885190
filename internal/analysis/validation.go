package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Validation declares the fit stable when the folds agree this closely.
const maxStableScoreStd = 0.5

// runValidation re-fits the regression on k-fold splits of the zones
// and scores each held-out fold, reporting how robust the in-sample fit
// is across cross sections.
func (a *UniversalZoneAnalyzer) runValidation(st *runState) error {
	reg := st.result.Regression
	folds := a.opts.ValidationFolds

	targetKey := targetFeatureKey(reg.Target)
	ys := make([]float64, len(st.zones))
	rows := make([][]float64, len(st.zones))
	for i, zone := range st.zones {
		flat := numericFeatures(zone)
		ys[i] = flat[targetKey]
		row := make([]float64, len(reg.FeatureNames))
		for j, name := range reg.FeatureNames {
			row[j] = flat[name]
		}
		rows[i] = row
	}

	scores := make([]float64, 0, folds)
	for fold := 0; fold < folds; fold++ {
		var trainRows, testRows [][]float64
		var trainYs, testYs []float64
		for i := range rows {
			if i%folds == fold {
				testRows = append(testRows, rows[i])
				testYs = append(testYs, ys[i])
			} else {
				trainRows = append(trainRows, rows[i])
				trainYs = append(trainYs, ys[i])
			}
		}
		if len(testRows) == 0 || len(trainRows) <= len(reg.FeatureNames)+1 {
			continue
		}
		intercept, coefs, err := fitOLS(trainRows, trainYs)
		if err != nil {
			return errs.NewAnalysisError("validation", "fold refit failed", err)
		}
		scores = append(scores, rSquared(testRows, testYs, intercept, coefs))
	}

	if len(scores) == 0 {
		// Not enough usable folds; the gate said otherwise but the
		// split degenerated, so report absence rather than fail.
		return nil
	}

	meanScore, stdScore := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		stdScore = 0
	}
	st.result.Validation = &models.ValidationResult{
		Folds:     folds,
		FoldScore: scores,
		MeanScore: meanScore,
		StdScore:  stdScore,
		Stable:    meanScore > 0 && stdScore < maxStableScoreStd,
	}
	return nil
}
