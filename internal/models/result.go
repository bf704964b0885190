package models

import "time"

// SummaryStat is a distribution summary for one feature across zones.
type SummaryStat struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// TypeStats aggregates feature distributions for all zones of one type.
type TypeStats struct {
	Count    int                    `json:"count"`
	Features map[string]SummaryStat `json:"features"`
}

// DistributionStats holds per-type and overall zone feature statistics.
type DistributionStats struct {
	Overall *TypeStats            `json:"overall"`
	PerType map[string]*TypeStats `json:"per_type"`
}

// HypothesisTest records one statistical comparison between two
// zone-feature samples: the test statistic, its p-value and the method
// that produced them. The pipeline reports p-values, it does not assert
// causality.
type HypothesisTest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	GroupA      string  `json:"group_a"`
	GroupB      string  `json:"group_b"`
	SampleA     int     `json:"sample_a"`
	SampleB     int     `json:"sample_b"`
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	Method      string  `json:"method"`
	Significant bool    `json:"significant"`
}

// SequenceAnalysis characterizes how zone types follow one another.
type SequenceAnalysis struct {
	TypeOrder        []string                      `json:"type_order"`
	TransitionCounts map[string]map[string]int     `json:"transition_counts"`
	TransitionProbs  map[string]map[string]float64 `json:"transition_probs"`
	MostCommonPath   string                        `json:"most_common_path"`
	AlternationRate  float64                       `json:"alternation_rate"`
}

// ClusteringResult groups zones by feature similarity into K clusters.
// Assignments is indexed by zone position in AnalysisResult.Zones.
type ClusteringResult struct {
	K            int         `json:"k"`
	FeatureNames []string    `json:"feature_names"`
	Assignments  []int       `json:"assignments"`
	Centroids    [][]float64 `json:"centroids"`
	Sizes        []int       `json:"sizes"`
	Inertia      float64     `json:"inertia"`
}

// RegressionResult is a least-squares fit from zone features to an
// outcome such as zone duration.
type RegressionResult struct {
	Target       string    `json:"target"`
	FeatureNames []string  `json:"feature_names"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	RSquared     float64   `json:"r_squared"`
	SampleSize   int       `json:"sample_size"`
}

// ValidationResult reports cross-sectional robustness of the fitted
// regression across folds.
type ValidationResult struct {
	Folds     int       `json:"folds"`
	FoldScore []float64 `json:"fold_scores"`
	MeanScore float64   `json:"mean_score"`
	StdScore  float64   `json:"std_score"`
	Stable    bool      `json:"stable"`
}

// RunMetadata echoes how and when a result was produced.
type RunMetadata struct {
	RunID              string           `json:"run_id"`
	CreatedAt          time.Time        `json:"created_at"`
	DatasetFingerprint string           `json:"dataset_fingerprint"`
	ConfigJSON         string           `json:"config"`
	ZoneCount          int              `json:"zone_count"`
	StageDurations     map[string]int64 `json:"stage_durations_ms"`
}

// AnalysisResult is the terminal output of one pipeline run. It is
// immutable after construction except for being persisted. Optional
// stage artifacts are nil when their data-sufficiency gate was not met.
type AnalysisResult struct {
	Zones         []*Zone            `json:"zones"`
	Statistics    *DistributionStats `json:"statistics"`
	Hypotheses    []HypothesisTest   `json:"hypothesis_tests"`
	Sequence      *SequenceAnalysis  `json:"sequence_analysis,omitempty"`
	Clustering    *ClusteringResult  `json:"clustering,omitempty"`
	Regression    *RegressionResult  `json:"regression_results,omitempty"`
	Validation    *ValidationResult  `json:"validation_results,omitempty"`
	SourceDataset *Dataset           `json:"-"`
	Metadata      RunMetadata        `json:"metadata"`
}
