package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// hasComparableGroup reports whether any zone type occurs at least
// twice, the minimum for a within-type comparison.
func hasComparableGroup(st *runState) bool {
	counts := make(map[string]int)
	for _, zone := range st.zones {
		counts[zone.Type]++
		if counts[zone.Type] >= 2 {
			return true
		}
	}
	return false
}

// runHypothesisTests runs the fixed battery of statistical comparisons:
// within each sufficiently large type, rally versus drop amplitude; and
// between the two largest types, rally amplitude and duration.
func (a *UniversalZoneAnalyzer) runHypothesisTests(st *runState) error {
	byType := make(map[string][]*models.Zone)
	for _, zone := range st.zones {
		byType[zone.Type] = append(byType[zone.Type], zone)
	}

	var tests []models.HypothesisTest

	types := make([]string, 0, len(byType))
	for zoneType := range byType {
		types = append(types, zoneType)
	}
	sort.Strings(types)

	for _, zoneType := range types {
		zones := byType[zoneType]
		if len(zones) < 2 {
			continue
		}
		rallies := collect(zones, func(z *models.Zone) (float64, bool) {
			if z.Features.Swing == nil {
				return 0, false
			}
			return z.Features.Swing.AvgRallyAmplitude, true
		})
		drops := collect(zones, func(z *models.Zone) (float64, bool) {
			if z.Features.Swing == nil {
				return 0, false
			}
			return z.Features.Swing.AvgDropAmplitude, true
		})
		if len(rallies) >= 2 && len(drops) >= 2 {
			t, p := welchTTest(rallies, drops)
			tests = append(tests, models.HypothesisTest{
				Name:        fmt.Sprintf("rally_vs_drop_amplitude_%s", zoneType),
				Description: fmt.Sprintf("average rally amplitude differs from average drop amplitude within %s zones", zoneType),
				GroupA:      zoneType + " rallies",
				GroupB:      zoneType + " drops",
				SampleA:     len(rallies),
				SampleB:     len(drops),
				Statistic:   t,
				PValue:      p,
				Method:      "welch_t",
				Significant: p < a.opts.SignificanceLevel,
			})
		}
	}

	// Cross-type comparisons between the two best-populated types.
	if first, second, ok := twoLargestTypes(byType); ok {
		ralliesA := collectSwing(byType[first], func(s *models.SwingMetrics) float64 { return s.AvgRallyAmplitude })
		ralliesB := collectSwing(byType[second], func(s *models.SwingMetrics) float64 { return s.AvgRallyAmplitude })
		if len(ralliesA) >= 2 && len(ralliesB) >= 2 {
			t, p := welchTTest(ralliesA, ralliesB)
			tests = append(tests, models.HypothesisTest{
				Name:        fmt.Sprintf("rally_amplitude_%s_vs_%s", first, second),
				Description: fmt.Sprintf("average rally amplitude differs between %s and %s zones", first, second),
				GroupA:      first,
				GroupB:      second,
				SampleA:     len(ralliesA),
				SampleB:     len(ralliesB),
				Statistic:   t,
				PValue:      p,
				Method:      "welch_t",
				Significant: p < a.opts.SignificanceLevel,
			})
		}

		durationsA := durations(byType[first])
		durationsB := durations(byType[second])
		if len(durationsA) >= 2 && len(durationsB) >= 2 {
			u, p := mannWhitneyU(durationsA, durationsB)
			tests = append(tests, models.HypothesisTest{
				Name:        fmt.Sprintf("duration_%s_vs_%s", first, second),
				Description: fmt.Sprintf("zone duration distributions differ between %s and %s zones", first, second),
				GroupA:      first,
				GroupB:      second,
				SampleA:     len(durationsA),
				SampleB:     len(durationsB),
				Statistic:   u,
				PValue:      p,
				Method:      "mann_whitney_u",
				Significant: p < a.opts.SignificanceLevel,
			})
		}
	}

	st.result.Hypotheses = tests
	return nil
}

func collect(zones []*models.Zone, pick func(*models.Zone) (float64, bool)) []float64 {
	var out []float64
	for _, zone := range zones {
		if v, ok := pick(zone); ok {
			out = append(out, v)
		}
	}
	return out
}

func collectSwing(zones []*models.Zone, pick func(*models.SwingMetrics) float64) []float64 {
	return collect(zones, func(z *models.Zone) (float64, bool) {
		if z.Features.Swing == nil {
			return 0, false
		}
		return pick(z.Features.Swing), true
	})
}

func durations(zones []*models.Zone) []float64 {
	out := make([]float64, len(zones))
	for i, zone := range zones {
		out[i] = float64(zone.Duration)
	}
	return out
}

func twoLargestTypes(byType map[string][]*models.Zone) (first, second string, ok bool) {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(byType))
	for name, zones := range byType {
		entries = append(entries, entry{name: name, count: len(zones)})
	}
	if len(entries) < 2 {
		return "", "", false
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	return entries[0].name, entries[1].name, true
}

// welchTTest is the two-sided Welch t-test with the
// Welch-Satterthwaite degrees of freedom.
func welchTTest(a, b []float64) (t, p float64) {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	nA, nB := float64(len(a)), float64(len(b))

	se2 := varA/nA + varB/nB
	if se2 == 0 {
		return 0, 1
	}
	t = (meanA - meanB) / math.Sqrt(se2)

	dfNum := se2 * se2
	dfDen := (varA/nA)*(varA/nA)/(nA-1) + (varB/nB)*(varB/nB)/(nB-1)
	if dfDen == 0 {
		return t, 1
	}
	df := dfNum / dfDen

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * (1 - dist.CDF(math.Abs(t)))
	return t, p
}

// mannWhitneyU is the rank-sum test with the normal approximation and
// midranks for ties.
func mannWhitneyU(a, b []float64) (u, p float64) {
	nA, nB := float64(len(a)), float64(len(b))
	type obs struct {
		value float64
		fromA bool
	}
	all := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		all = append(all, obs{value: v, fromA: true})
	}
	for _, v := range b {
		all = append(all, obs{value: v})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].value < all[j].value })

	ranks := make([]float64, len(all))
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].value == all[i].value {
			j++
		}
		midrank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = midrank
		}
		i = j
	}

	rankSumA := 0.0
	for i, o := range all {
		if o.fromA {
			rankSumA += ranks[i]
		}
	}
	u = rankSumA - nA*(nA+1)/2

	mu := nA * nB / 2
	sigma := math.Sqrt(nA * nB * (nA + nB + 1) / 12)
	if sigma == 0 {
		return u, 1
	}
	z := (u - mu) / sigma
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	p = 2 * (1 - normal.CDF(math.Abs(z)))
	return u, p
}
