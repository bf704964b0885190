package analysis

import "github.com/quantlab/zoneanalyzer/internal/models"

// numericFeatures flattens a zone's populated feature records into a
// named map. Statistics, clustering and regression all work off this
// view so the schema stays in one place.
func numericFeatures(zone *models.Zone) map[string]float64 {
	out := map[string]float64{
		"duration": float64(zone.Duration),
	}
	if s := zone.Features.Swing; s != nil {
		out["swing.num_swings"] = float64(s.NumSwings)
		out["swing.num_rallies"] = float64(s.NumRallies)
		out["swing.num_drops"] = float64(s.NumDrops)
		out["swing.avg_rally_amplitude"] = s.AvgRallyAmplitude
		out["swing.median_rally_amplitude"] = s.MedianRallyAmplitude
		out["swing.avg_drop_amplitude"] = s.AvgDropAmplitude
		out["swing.median_drop_amplitude"] = s.MedianDropAmplitude
		out["swing.avg_rally_duration"] = s.AvgRallyDuration
		out["swing.avg_drop_duration"] = s.AvgDropDuration
		out["swing.rally_speed"] = s.RallySpeed
		out["swing.drop_speed"] = s.DropSpeed
		out["swing.amplitude_ratio"] = s.AmplitudeRatio
	}
	if s := zone.Features.Shape; s != nil {
		out["shape.skewness"] = s.Skewness
		out["shape.kurtosis"] = s.Kurtosis
		out["shape.smoothness"] = s.Smoothness
	}
	if d := zone.Features.Divergence; d != nil {
		out["divergence.count"] = float64(d.Count)
		out["divergence.strength"] = d.Strength
	}
	if v := zone.Features.Volatility; v != nil {
		out["volatility.avg_range"] = v.AvgRange
		out["volatility.return_std"] = v.ReturnStd
		out["volatility.zone_return"] = v.ZoneReturn
		out["volatility.max_drawdown"] = v.MaxDrawdown
	}
	if v := zone.Features.Volume; v != nil {
		out["volume.avg_volume"] = v.AvgVolume
		out["volume.indicator_corr"] = v.VolumeIndicatorCorr
		out["volume.zscore"] = v.VolumeZScore
	}
	return out
}

// vectorFeatureNames is the fixed ordering used for clustering and
// regression design matrices. Only features that are comparable across
// zones of different types appear here.
var vectorFeatureNames = []string{
	"duration",
	"swing.num_swings",
	"swing.avg_rally_amplitude",
	"swing.avg_drop_amplitude",
	"swing.rally_speed",
	"swing.drop_speed",
	"shape.skewness",
	"shape.kurtosis",
	"shape.smoothness",
	"divergence.strength",
	"volatility.return_std",
	"volatility.zone_return",
	"volatility.max_drawdown",
	"volume.indicator_corr",
}

// featureVector projects a zone onto vectorFeatureNames, excluding any
// names listed in skip. Missing features read as zero.
func featureVector(zone *models.Zone, skip map[string]bool) ([]float64, []string) {
	flat := numericFeatures(zone)
	vec := make([]float64, 0, len(vectorFeatureNames))
	names := make([]string, 0, len(vectorFeatureNames))
	for _, name := range vectorFeatureNames {
		if skip[name] {
			continue
		}
		vec = append(vec, flat[name])
		names = append(names, name)
	}
	return vec, names
}
