package homology

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the valid hits of a support set. Hits on both sides
// of the link are pooled; degenerate alignments and non-finite values are
// left out.
type Summary struct {
	Rows           int     `json:"rows"`
	MeanSimilarity float64 `json:"mean_similarity"`
	MaxSimilarity  float64 `json:"max_similarity"`
	MeanIdentity   float64 `json:"mean_identity"`
	MaxIdentity    float64 `json:"max_identity"`
	MinEValue      float64 `json:"min_evalue"`
}

func (s *SupportSet) Summarize() Summary {
	var sim, ident, evalues []float64
	rows := 0
	for _, row := range s.rows {
		if !row.Low.Valid || !row.High.Valid {
			continue
		}
		rows++
		for _, r := range []*Record{row.Low, row.High} {
			if r.Degenerate() {
				continue
			}
			sim = appendFinite(sim, r.SimilarityPct())
			ident = appendFinite(ident, r.IdentityPct())
			evalues = appendFinite(evalues, r.EValue())
		}
	}

	sum := Summary{Rows: rows}
	if len(sim) > 0 {
		sum.MeanSimilarity = stat.Mean(sim, nil)
		sum.MaxSimilarity = floats.Max(sim)
	}
	if len(ident) > 0 {
		sum.MeanIdentity = stat.Mean(ident, nil)
		sum.MaxIdentity = floats.Max(ident)
	}
	if len(evalues) > 0 {
		sum.MinEValue = floats.Min(evalues)
	}
	return sum
}

func appendFinite(values []float64, v float64) []float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return values
	}
	return append(values, v)
}
