package analysis

import (
	"fmt"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// runSequence characterizes how zone types follow one another: raw and
// normalized transition matrices, the most common transition, and how
// often consecutive zones change type.
func (a *UniversalZoneAnalyzer) runSequence(st *runState) error {
	order := make([]string, len(st.zones))
	for i, zone := range st.zones {
		order[i] = zone.Type
	}

	counts := make(map[string]map[string]int)
	alternations := 0
	bestCount := 0
	bestPath := ""
	for i := 1; i < len(order); i++ {
		from, to := order[i-1], order[i]
		if counts[from] == nil {
			counts[from] = make(map[string]int)
		}
		counts[from][to]++
		if from != to {
			alternations++
		}
		if counts[from][to] > bestCount {
			bestCount = counts[from][to]
			bestPath = fmt.Sprintf("%s->%s", from, to)
		}
	}

	probs := make(map[string]map[string]float64, len(counts))
	for from, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		probs[from] = make(map[string]float64, len(row))
		for to, c := range row {
			probs[from][to] = float64(c) / float64(total)
		}
	}

	st.result.Sequence = &models.SequenceAnalysis{
		TypeOrder:        order,
		TransitionCounts: counts,
		TransitionProbs:  probs,
		MostCommonPath:   bestPath,
		AlternationRate:  float64(alternations) / float64(len(order)-1),
	}
	return nil
}
