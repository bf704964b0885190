package models

import "time"

// DetectionContext makes a zone self-describing: it records which
// strategy produced the zone and which columns that strategy consulted,
// so downstream feature strategies never have to re-derive source
// columns.
type DetectionContext struct {
	Strategy         string                 `json:"strategy"`
	IndicatorColumns []string               `json:"indicator_columns"`
	RuleParams       map[string]interface{} `json:"rule_params,omitempty"`
}

// IndicatorColumn returns the primary indicator column the detection
// consulted, or an empty string when none was recorded.
func (c DetectionContext) IndicatorColumn() string {
	if len(c.IndicatorColumns) == 0 {
		return ""
	}
	return c.IndicatorColumns[0]
}

// Zone is a maximal contiguous interval of a dataset satisfying one
// detection rule, tagged with a type. StartIndex and EndIndex are
// inclusive positions into the source dataset.
type Zone struct {
	ID         int              `json:"zone_id"`
	Type       string           `json:"type"`
	StartIndex int              `json:"start_index"`
	EndIndex   int              `json:"end_index"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Duration   int              `json:"duration"`
	Data       *Dataset         `json:"-"`
	Detection  DetectionContext `json:"detection_context"`
	Features   FeatureSet       `json:"features"`
}

// FeatureSet holds the per-family metric records for a zone. All entries
// are nil immediately after detection and populated by the analyzer.
type FeatureSet struct {
	Swing      *SwingMetrics      `json:"swing,omitempty"`
	Shape      *ShapeMetrics      `json:"shape,omitempty"`
	Divergence *DivergenceMetrics `json:"divergence,omitempty"`
	Volatility *VolatilityMetrics `json:"volatility,omitempty"`
	Volume     *VolumeMetrics     `json:"volume,omitempty"`
}

// SwingMetrics describes the local price swings inside (or around) a
// zone: upward legs are rallies, downward legs are drops. Amplitudes are
// relative price moves, durations are bar counts, speeds are amplitude
// per bar. A degenerate zone yields the zero record.
type SwingMetrics struct {
	NumSwings            int     `json:"num_swings"`
	NumRallies           int     `json:"num_rallies"`
	NumDrops             int     `json:"num_drops"`
	AvgRallyAmplitude    float64 `json:"avg_rally_amplitude"`
	MinRallyAmplitude    float64 `json:"min_rally_amplitude"`
	MaxRallyAmplitude    float64 `json:"max_rally_amplitude"`
	MedianRallyAmplitude float64 `json:"median_rally_amplitude"`
	AvgDropAmplitude     float64 `json:"avg_drop_amplitude"`
	MinDropAmplitude     float64 `json:"min_drop_amplitude"`
	MaxDropAmplitude     float64 `json:"max_drop_amplitude"`
	MedianDropAmplitude  float64 `json:"median_drop_amplitude"`
	AvgRallyDuration     float64 `json:"avg_rally_duration"`
	MedianRallyDuration  float64 `json:"median_rally_duration"`
	AvgDropDuration      float64 `json:"avg_drop_duration"`
	MedianDropDuration   float64 `json:"median_drop_duration"`
	RallySpeed           float64 `json:"rally_speed"`
	DropSpeed            float64 `json:"drop_speed"`
	AmplitudeRatio       float64 `json:"amplitude_ratio"`
	DurationRatio        float64 `json:"duration_ratio"`
	SpeedRatio           float64 `json:"speed_ratio"`
	CountRatio           float64 `json:"count_ratio"`
	StrategyName         string  `json:"strategy_name"`
	StrategyParams       string  `json:"strategy_params"`
}

// ShapeMetrics describes the distributional shape of the indicator
// series inside a zone.
type ShapeMetrics struct {
	Skewness   float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"`
	Smoothness float64 `json:"smoothness"`
}

// DivergenceMetrics classifies price-versus-indicator divergence inside
// a zone. Type is one of "regular", "hidden", "mixed" or "none";
// Direction is "bullish", "bearish", "mixed" or "none"; Strength is in
// [0, 1].
type DivergenceMetrics struct {
	Type      string  `json:"type"`
	Count     int     `json:"count"`
	Strength  float64 `json:"strength"`
	Direction string  `json:"direction"`
}

// VolatilityMetrics describes price range and return dispersion inside a
// zone. Regime is a coarse label: "low", "medium" or "high".
type VolatilityMetrics struct {
	AvgRange          float64 `json:"avg_range"`
	MaxRange          float64 `json:"max_range"`
	ReturnStd         float64 `json:"return_std"`
	AvgTrueRange      float64 `json:"avg_true_range"`
	UpsideDeviation   float64 `json:"upside_deviation"`
	DownsideDeviation float64 `json:"downside_deviation"`
	VolOfVol          float64 `json:"vol_of_vol"`
	ZoneReturn        float64 `json:"zone_return"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	Regime            string  `json:"regime"`
}

// VolumeMetrics relates traded volume to the detection indicator inside
// a zone. VolumeTrend is "rising", "falling" or "flat".
type VolumeMetrics struct {
	VolumeIndicatorCorr float64 `json:"volume_indicator_corr"`
	VolumeTrend         string  `json:"volume_trend"`
	AvgVolume           float64 `json:"avg_volume"`
	VolumeZScore        float64 `json:"volume_zscore"`
}
