// Package analysis orchestrates zone feature extraction and the
// dataset-level statistics layered on top of it. Stages run in a fixed
// order; optional stages are guarded by data-sufficiency preconditions
// and return absent results instead of failing when a gate is not met.
package analysis

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/features"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Options controls which analyzer stages run and how.
type Options struct {
	Features          features.Config `json:"features" mapstructure:"features"`
	EnableClustering  bool            `json:"enable_clustering" mapstructure:"enable_clustering"`
	NumClusters       int             `json:"num_clusters" mapstructure:"num_clusters"`
	EnableRegression  bool            `json:"enable_regression" mapstructure:"enable_regression"`
	RegressionTarget  string          `json:"regression_target" mapstructure:"regression_target"`
	EnableValidation  bool            `json:"enable_validation" mapstructure:"enable_validation"`
	ValidationFolds   int             `json:"validation_folds" mapstructure:"validation_folds"`
	SignificanceLevel float64         `json:"significance_level" mapstructure:"significance_level"`
}

// DefaultOptions enables the mandatory stages only.
func DefaultOptions() Options {
	return Options{
		Features:          features.DefaultConfig(),
		NumClusters:       3,
		RegressionTarget:  "duration",
		ValidationFolds:   5,
		SignificanceLevel: 0.05,
	}
}

// Data-sufficiency gates for the optional stages.
const (
	minZonesForSequence   = 3
	minZonesForRegression = 11
	minZonesForValidation = 21
)

// UniversalZoneAnalyzer aggregates zone-level features into
// dataset-level statistics, hypothesis tests, sequence and clustering
// analysis, and optional regression with validation.
type UniversalZoneAnalyzer struct {
	opts   Options
	logger *logrus.Logger
}

// New creates an analyzer.
func New(opts Options, logger *logrus.Logger) *UniversalZoneAnalyzer {
	if opts.SignificanceLevel <= 0 || opts.SignificanceLevel >= 1 {
		opts.SignificanceLevel = 0.05
	}
	if opts.RegressionTarget == "" {
		opts.RegressionTarget = "duration"
	}
	if opts.ValidationFolds < 2 {
		opts.ValidationFolds = 5
	}
	return &UniversalZoneAnalyzer{opts: opts, logger: logger}
}

type runState struct {
	ds     *models.Dataset
	zones  []*models.Zone
	opts   Options
	result *models.AnalysisResult
}

type stage struct {
	name         string
	mandatory    bool
	precondition func(*runState) bool
	run          func(*runState) error
}

func (a *UniversalZoneAnalyzer) stages() []stage {
	always := func(*runState) bool { return true }
	return []stage{
		{name: "feature_extraction", mandatory: true, precondition: always, run: a.runFeatureExtraction},
		{name: "statistics", mandatory: true, precondition: always, run: a.runStatistics},
		{name: "hypothesis_tests", mandatory: true, precondition: hasComparableGroup, run: a.runHypothesisTests},
		{name: "sequence", precondition: func(st *runState) bool {
			return len(st.zones) >= minZonesForSequence
		}, run: a.runSequence},
		{name: "clustering", precondition: func(st *runState) bool {
			return st.opts.EnableClustering && st.opts.NumClusters >= 1 && len(st.zones) >= st.opts.NumClusters
		}, run: a.runClustering},
		{name: "regression", precondition: func(st *runState) bool {
			return st.opts.EnableRegression && len(st.zones) >= minZonesForRegression
		}, run: a.runRegression},
		{name: "validation", precondition: func(st *runState) bool {
			return st.opts.EnableValidation && len(st.zones) >= minZonesForValidation && st.result.Regression != nil
		}, run: a.runValidation},
	}
}

// Analyze runs the stage machine over the detected zones and returns the
// combined result. Mandatory stage failures abort the run with an
// AnalysisError naming the stage; gated stages that do not meet their
// precondition leave their result absent and never fail for it.
func (a *UniversalZoneAnalyzer) Analyze(ctx context.Context, ds *models.Dataset, zones []*models.Zone) (*models.AnalysisResult, error) {
	st := &runState{
		ds:    ds,
		zones: zones,
		opts:  a.opts,
		result: &models.AnalysisResult{
			Zones: zones,
			Metadata: models.RunMetadata{
				ZoneCount:      len(zones),
				StageDurations: make(map[string]int64),
			},
		},
	}

	for _, s := range a.stages() {
		if err := ctx.Err(); err != nil {
			return nil, errs.NewAnalysisError(s.name, "analysis cancelled", err)
		}
		if !s.precondition(st) {
			a.logger.WithFields(logrus.Fields{
				"stage": s.name,
				"zones": len(st.zones),
			}).Debug("Skipping stage, data-sufficiency gate not met")
			continue
		}
		started := time.Now()
		if err := s.run(st); err != nil {
			return nil, err
		}
		st.result.Metadata.StageDurations[s.name] = time.Since(started).Milliseconds()
	}

	a.logger.WithFields(logrus.Fields{
		"zones":      len(zones),
		"hypotheses": len(st.result.Hypotheses),
	}).Info("Zone analysis completed")
	return st.result, nil
}

// runFeatureExtraction fills every zone's feature set. Later stages
// depend on complete features, so any failure here is fatal.
func (a *UniversalZoneAnalyzer) runFeatureExtraction(st *runState) error {
	var sctx *features.SwingContext
	if a.opts.Features.Swing.Scope == "global" {
		var err error
		sctx, err = features.NewSwingContext(st.ds, a.opts.Features.Swing)
		if err != nil {
			return errs.NewAnalysisError("feature_extraction", "building global swing context", err)
		}
	}

	for _, zone := range st.zones {
		swing, err := features.CalculateSwings(zone, a.opts.Features.Swing, sctx)
		if err != nil {
			return zoneFailure(zone, "swing", err)
		}
		zone.Features.Swing = swing

		if a.opts.Features.Shape {
			if zone.Features.Shape, err = features.CalculateShape(zone, ""); err != nil {
				return zoneFailure(zone, "shape", err)
			}
		}
		if a.opts.Features.Divergence {
			if zone.Features.Divergence, err = features.CalculateDivergence(zone, ""); err != nil {
				return zoneFailure(zone, "divergence", err)
			}
		}
		if a.opts.Features.Volatility {
			if zone.Features.Volatility, err = features.CalculateVolatility(zone, ""); err != nil {
				return zoneFailure(zone, "volatility", err)
			}
		}
		if a.opts.Features.Volume {
			if zone.Features.Volume, err = features.CalculateVolume(zone, ""); err != nil {
				return zoneFailure(zone, "volume", err)
			}
		}
	}
	return nil
}

func zoneFailure(zone *models.Zone, family string, err error) error {
	return errs.NewZoneAnalysisError("feature_extraction", zoneID(zone), family+" feature strategy failed", err)
}

func zoneID(zone *models.Zone) string {
	return zone.Type + "#" + strconv.Itoa(zone.ID)
}
