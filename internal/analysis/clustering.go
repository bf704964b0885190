package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

const kmeansMaxIterations = 100

// runClustering groups zones by feature similarity with k-means over
// standardized feature vectors. Initialization is deterministic (evenly
// spaced zones in detection order) so repeated runs agree.
func (a *UniversalZoneAnalyzer) runClustering(st *runState) error {
	k := a.opts.NumClusters
	vectors, names := zoneVectors(st.zones, nil)
	standardize(vectors)

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		src := vectors[c*len(vectors)/k]
		centroids[c] = append([]float64(nil), src...)
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, vec := range vectors {
			best, bestDist := 0, floats.Distance(vec, centroids[0], 2)
			for c := 1; c < k; c++ {
				if d := floats.Distance(vec, centroids[c], 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		for c := 0; c < k; c++ {
			members := 0
			next := make([]float64, len(names))
			for i, vec := range vectors {
				if assignments[i] != c {
					continue
				}
				floats.Add(next, vec)
				members++
			}
			if members == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}
			floats.Scale(1/float64(members), next)
			centroids[c] = next
		}
	}

	sizes := make([]int, k)
	inertia := 0.0
	for i, vec := range vectors {
		sizes[assignments[i]]++
		d := floats.Distance(vec, centroids[assignments[i]], 2)
		inertia += d * d
	}

	if len(assignments) != len(st.zones) {
		return errs.NewAnalysisError("clustering", "assignment count does not match zone count", nil)
	}

	st.result.Clustering = &models.ClusteringResult{
		K:            k,
		FeatureNames: names,
		Assignments:  assignments,
		Centroids:    centroids,
		Sizes:        sizes,
		Inertia:      inertia,
	}
	return nil
}

func zoneVectors(zones []*models.Zone, skip map[string]bool) ([][]float64, []string) {
	vectors := make([][]float64, len(zones))
	var names []string
	for i, zone := range zones {
		vectors[i], names = featureVector(zone, skip)
	}
	return vectors, names
}

// standardize scales each feature dimension to zero mean and unit
// variance in place; constant dimensions are left centered.
func standardize(vectors [][]float64) {
	if len(vectors) == 0 {
		return
	}
	dims := len(vectors[0])
	column := make([]float64, len(vectors))
	for d := 0; d < dims; d++ {
		for i := range vectors {
			column[i] = vectors[i][d]
		}
		mean, std := stat.MeanStdDev(column, nil)
		for i := range vectors {
			vectors[i][d] -= mean
			if std > 0 {
				vectors[i][d] /= std
			}
		}
	}
}
