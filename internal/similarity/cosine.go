// Package similarity compares homology hit score profiles.
package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Cosine returns the cosine similarity of two profiles, or 0 when they
// differ in length, are empty, or either has zero magnitude. Non-finite
// components are treated as 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	x := toFloat64(a)
	y := toFloat64(b)

	magX := floats.Norm(x, 2)
	magY := floats.Norm(y, 2)
	if magX == 0 || magY == 0 {
		return 0
	}
	return floats.Dot(x, y) / (magX * magY)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		if g := float64(f); !math.IsNaN(g) && !math.IsInf(g, 0) {
			out[i] = g
		}
	}
	return out
}

// Candidate is a stored profile identified by Key.
type Candidate struct {
	Key     string
	Profile []float32
}

// Match is a candidate scored against a query profile.
type Match struct {
	Key        string
	Similarity float64
}

// Rank scores every candidate against query and returns those at or above
// threshold, most similar first, at most limit of them when limit > 0.
func Rank(query []float32, candidates []Candidate, threshold float64, limit int) []Match {
	matches := []Match{}
	for _, c := range candidates {
		sim := Cosine(query, c.Profile)
		if sim >= threshold {
			matches = append(matches, Match{Key: c.Key, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
