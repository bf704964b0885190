package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// runStatistics aggregates all zones' features into per-type and overall
// distribution summaries.
func (a *UniversalZoneAnalyzer) runStatistics(st *runState) error {
	overall := make(map[string][]float64)
	perType := make(map[string]map[string][]float64)

	for _, zone := range st.zones {
		flat := numericFeatures(zone)
		if perType[zone.Type] == nil {
			perType[zone.Type] = make(map[string][]float64)
		}
		for name, value := range flat {
			overall[name] = append(overall[name], value)
			perType[zone.Type][name] = append(perType[zone.Type][name], value)
		}
	}

	stats := &models.DistributionStats{
		Overall: summarize(len(st.zones), overall),
		PerType: make(map[string]*models.TypeStats, len(perType)),
	}
	for zoneType, samples := range perType {
		count := 0
		for _, zone := range st.zones {
			if zone.Type == zoneType {
				count++
			}
		}
		stats.PerType[zoneType] = summarize(count, samples)
	}

	st.result.Statistics = stats
	return nil
}

func summarize(count int, samples map[string][]float64) *models.TypeStats {
	ts := &models.TypeStats{
		Count:    count,
		Features: make(map[string]models.SummaryStat, len(samples)),
	}
	for name, values := range samples {
		ts.Features[name] = summaryStat(values)
	}
	return ts
}

func summaryStat(values []float64) models.SummaryStat {
	if len(values) == 0 {
		return models.SummaryStat{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s := models.SummaryStat{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sorted) >= 2 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}
