package analysis

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// regressionFeatureNames is the compact predictor set for the fitted
// model. Kept deliberately small so the design matrix stays
// well-conditioned at the minimum gated sample size.
var regressionFeatureNames = []string{
	"duration",
	"swing.avg_rally_amplitude",
	"swing.avg_drop_amplitude",
	"shape.smoothness",
	"volatility.return_std",
	"volatility.zone_return",
	"volume.indicator_corr",
}

// runRegression fits an ordinary least squares model from zone features
// to the configured target (zone duration by default, or zone return).
func (a *UniversalZoneAnalyzer) runRegression(st *runState) error {
	target := a.opts.RegressionTarget
	targetKey := targetFeatureKey(target)

	predictors := make([]string, 0, len(regressionFeatureNames))
	for _, name := range regressionFeatureNames {
		if name != targetKey {
			predictors = append(predictors, name)
		}
	}

	ys := make([]float64, len(st.zones))
	rows := make([][]float64, len(st.zones))
	for i, zone := range st.zones {
		flat := numericFeatures(zone)
		y, ok := flat[targetKey]
		if !ok {
			return errs.NewAnalysisError("regression", "unknown regression target "+target, nil)
		}
		ys[i] = y
		row := make([]float64, len(predictors))
		for j, name := range predictors {
			row[j] = flat[name]
		}
		rows[i] = row
	}

	intercept, coefs, err := fitOLS(rows, ys)
	if err != nil {
		return errs.NewAnalysisError("regression", "least squares fit failed", err)
	}

	st.result.Regression = &models.RegressionResult{
		Target:       target,
		FeatureNames: predictors,
		Intercept:    intercept,
		Coefficients: coefs,
		RSquared:     rSquared(rows, ys, intercept, coefs),
		SampleSize:   len(st.zones),
	}
	return nil
}

func targetFeatureKey(target string) string {
	switch target {
	case "zone_return":
		return "volatility.zone_return"
	default:
		return "duration"
	}
}

// fitOLS solves the least squares problem with an intercept column via
// QR factorization.
func fitOLS(rows [][]float64, ys []float64) (intercept float64, coefs []float64, err error) {
	n := len(rows)
	p := len(rows[0])
	x := mat.NewDense(n, p+1, nil)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}
	y := mat.NewVecDense(n, ys)

	var qr mat.QR
	qr.Factorize(x)
	beta := mat.NewVecDense(p+1, nil)
	if err := qr.SolveVecTo(beta, false, y); err != nil {
		return 0, nil, err
	}

	coefs = make([]float64, p)
	for j := 0; j < p; j++ {
		coefs[j] = beta.AtVec(j + 1)
	}
	return beta.AtVec(0), coefs, nil
}

func predict(row []float64, intercept float64, coefs []float64) float64 {
	y := intercept
	for j, v := range row {
		y += coefs[j] * v
	}
	return y
}

// rSquared computes the coefficient of determination of the fit against
// the sample mean baseline.
func rSquared(rows [][]float64, ys []float64, intercept float64, coefs []float64) float64 {
	meanY := stat.Mean(ys, nil)
	ssTot, ssRes := 0.0, 0.0
	for i, row := range rows {
		diff := ys[i] - meanY
		ssTot += diff * diff
		resid := ys[i] - predict(row, intercept, coefs)
		ssRes += resid * resid
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
