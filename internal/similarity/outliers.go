package similarity

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultNeighbors is the neighbourhood size used when k is not positive.
const DefaultNeighbors = 5

// Outliers scores each profile by its mean Euclidean distance to its k
// nearest neighbours, min-max normalized to [0, 1]. Higher is more unusual.
// When every profile is equally distant all scores are 0.5.
func Outliers(profiles [][]float32, k int) []float64 {
	n := len(profiles)
	if n == 0 {
		return []float64{}
	}
	if k <= 0 {
		k = DefaultNeighbors
	}
	if k >= n {
		k = n - 1
	}

	points := make([][]float64, n)
	for i, p := range profiles {
		points[i] = toFloat64(p)
	}

	scores := make([]float64, n)
	for i := range points {
		distances := make([]float64, 0, n-1)
		for j := range points {
			if i == j || len(points[i]) != len(points[j]) {
				continue
			}
			distances = append(distances, floats.Distance(points[i], points[j], 2))
		}
		sort.Float64s(distances)

		nearest := min(k, len(distances))
		if nearest > 0 {
			scores[i] = floats.Sum(distances[:nearest]) / float64(nearest)
		}
	}

	return normalize(scores)
}

func normalize(scores []float64) []float64 {
	lo, hi := floats.Min(scores), floats.Max(scores)
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
