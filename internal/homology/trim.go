package homology

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TaxonMode selects how an evidence record's taxon ids are matched against
// a taxon filter.
type TaxonMode int

const (
	// TaxonEvery requires every taxon id of the record to be in the filter.
	TaxonEvery TaxonMode = iota
	// TaxonSome requires at least one taxon id of the record to be in the filter.
	TaxonSome
)

func (m TaxonMode) String() string {
	if m == TaxonSome {
		return "some"
	}
	return "every"
}

// ParseTaxonMode accepts "every" or "some", case-insensitively. The empty
// string selects TaxonEvery.
func ParseTaxonMode(s string) (TaxonMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "every":
		return TaxonEvery, nil
	case "some":
		return TaxonSome, nil
	}
	return TaxonEvery, fmt.Errorf("unknown taxon mode %q", s)
}

func (m TaxonMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TaxonMode) UnmarshalText(text []byte) error {
	mode, err := ParseTaxonMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

func (m TaxonMode) match(ids []string, taxons map[string]struct{}) bool {
	if m == TaxonSome {
		return slices.ContainsFunc(ids, func(id string) bool {
			_, ok := taxons[id]
			return ok
		})
	}
	for _, id := range ids {
		if _, ok := taxons[id]; !ok {
			return false
		}
	}
	return true
}

// TrimOptions configures SupportSet.Trim. A nil DetectionMethods or Taxons
// slice means the filter is not applied; an empty non-nil slice matches
// nothing.
type TrimOptions struct {
	SimilarityMin    float64   `json:"similarity_min"`
	IdentityMin      float64   `json:"identity_min"`
	CoverageMin      float64   `json:"coverage_min"`
	EValueMax        float64   `json:"evalue_max"`
	DetectionMethods []string  `json:"detection_methods,omitempty"`
	Taxons           []string  `json:"taxons,omitempty"`
	TaxonMode        TaxonMode `json:"taxon_mode"`
	Compact          bool      `json:"compact"`
	Explain          bool      `json:"explain"`
	Dedupe           bool      `json:"dedupe"`
}

// DefaultTrimOptions accepts every alignment with an e-value of at most 1.
func DefaultTrimOptions() TrimOptions {
	return TrimOptions{EValueMax: 1}
}

// Criterion names used in Reasons.
const (
	CriterionSimilarity = "similarity"
	CriterionIdentity   = "identity"
	CriterionCoverage   = "coverage"
	CriterionEValue     = "evalue"
)

// Reasons maps each failing criterion to a description of the failure.
// Passing criteria are absent.
type Reasons map[string]string

// Explanation holds the threshold failures of both hits of row Index.
type Explanation struct {
	Index int     `json:"index"`
	Low   Reasons `json:"low"`
	High  Reasons `json:"high"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// evaluate checks the four alignment thresholds. Comparisons are written so
// that a NaN score fails every threshold.
func (o TrimOptions) evaluate(r *Record, explain bool) (bool, Reasons) {
	valid := true
	var reasons Reasons
	fail := func(criterion string, value float64, op string, threshold float64) {
		valid = false
		if explain {
			if reasons == nil {
				reasons = Reasons{}
			}
			reasons[criterion] = formatFloat(value) + ", expected " + op + " " + formatFloat(threshold)
		}
	}

	if v := r.SimilarityPct(); !(v >= o.SimilarityMin) {
		fail(CriterionSimilarity, v, ">=", o.SimilarityMin)
	}
	if v := r.IdentityPct(); !(v >= o.IdentityMin) {
		fail(CriterionIdentity, v, ">=", o.IdentityMin)
	}
	if v := r.CoveragePct(); !(v >= o.CoverageMin) {
		fail(CriterionCoverage, v, ">=", o.CoverageMin)
	}
	if v := r.EValue(); !(v <= o.EValueMax) {
		fail(CriterionEValue, v, "<=", o.EValueMax)
	}

	if explain && reasons == nil {
		reasons = Reasons{}
	}
	return valid, reasons
}

func toSet(values []string) map[string]struct{} {
	if values == nil {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (row *Row) key() string {
	return strings.Join(row.Low.Fields, "\t") + "\n" + strings.Join(row.High.Fields, "\t")
}

// Trim re-evaluates the validity of every row and its evidence against
// opts and makes the set visible.
//
// A row is valid when both hits pass every alignment threshold and, if a
// detection method or taxon filter is given, at least one of its evidence
// records passes the filter. Without such a filter every evidence record is
// reset to valid, undoing filtering done by an earlier call. Invalid rows
// have both hits and all evidence invalidated. With Dedupe, rows whose
// field vectors repeat an earlier row are dropped as well; with Compact,
// invalid and duplicate rows are removed from the set once the pass is
// complete.
//
// When opts.Explain is set, one Explanation per row is returned.
func (s *SupportSet) Trim(opts TrimOptions) []Explanation {
	s.visible = true

	methods := toSet(opts.DetectionMethods)
	taxons := toSet(opts.Taxons)
	filtering := methods != nil || taxons != nil

	explanations := []Explanation{}
	drop := make([]bool, len(s.rows))
	seen := make(map[string]struct{})

	for i, row := range s.rows {
		lowValid, lowReasons := opts.evaluate(row.Low, opts.Explain)
		highValid, highReasons := opts.evaluate(row.High, opts.Explain)
		row.Low.Valid = lowValid
		row.High.Valid = highValid
		if opts.Explain {
			explanations = append(explanations, Explanation{Index: i, Low: lowReasons, High: highReasons})
		}

		switch {
		case !filtering:
			for _, ev := range row.Evidence {
				ev.Valid = true
			}
		case row.Low.Valid && row.High.Valid:
			survived := false
			for _, ev := range row.Evidence {
				ok := true
				if methods != nil {
					_, ok = methods[ev.Record.DetectionMethod()]
				}
				if ok && taxons != nil {
					ok = opts.TaxonMode.match(ev.Record.TaxonIDs(), taxons)
				}
				ev.Valid = ok
				survived = survived || ok
			}
			row.Low.Valid = survived
			row.High.Valid = survived
		}

		if !row.Low.Valid || !row.High.Valid {
			row.Low.Valid = false
			row.High.Valid = false
			for _, ev := range row.Evidence {
				ev.Valid = false
			}
			drop[i] = true
		}

		if opts.Dedupe {
			key := row.key()
			if _, dup := seen[key]; dup {
				drop[i] = true
			} else {
				seen[key] = struct{}{}
			}
		}
	}

	if opts.Compact {
		kept := make([]*Row, 0, len(s.rows))
		for i, row := range s.rows {
			if !drop[i] {
				kept = append(kept, row)
			}
		}
		s.rows = kept
	}

	return explanations
}
