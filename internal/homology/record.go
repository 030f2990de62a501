// Package homology holds the homology support of a candidate link between
// two query proteins: paired alignment hits, one per side of the link, and
// the interaction evidence observed between their templates.
package homology

import (
	"math"
	"strconv"
	"strings"

	"github.com/todmy/interolog/internal/evidence"
)

// Column layout of a hit field vector.
const (
	FieldTemplate = iota
	FieldTemplateLength
	FieldQueryStart
	FieldQueryEnd
	FieldTemplateStart
	FieldTemplateEnd
	FieldSimilar
	FieldIdentical
	FieldEValue
	FieldQueryLength

	FieldCount
)

// Record is one alignment hit between a query protein and a template.
type Record struct {
	Fields []string
	Valid  bool
}

// NewRecord copies fields into a new valid record. No shape validation is
// done; missing or malformed numbers surface as NaN in the derived values.
func NewRecord(fields []string) *Record {
	return &Record{Fields: append([]string(nil), fields...), Valid: true}
}

func (r *Record) number(i int) float64 {
	if i >= len(r.Fields) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Fields[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Template returns the template identifier, field 0.
func (r *Record) Template() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[FieldTemplate]
}

// Length is the number of query residues covered by the alignment.
func (r *Record) Length() float64 {
	return r.number(FieldQueryEnd) - r.number(FieldQueryStart) + 1
}

func (r *Record) SimilarityPct() float64 {
	return 100 * r.number(FieldSimilar) / r.Length()
}

func (r *Record) IdentityPct() float64 {
	return 100 * r.number(FieldIdentical) / r.Length()
}

func (r *Record) CoveragePct() float64 {
	return 100 * r.Length() / r.number(FieldQueryLength)
}

func (r *Record) EValue() float64 {
	return r.number(FieldEValue)
}

// Degenerate reports an alignment whose length is not a positive finite
// number. Percentages derived from such a record are meaningless.
func (r *Record) Degenerate() bool {
	l := r.Length()
	return math.IsNaN(l) || math.IsInf(l, 0) || l <= 0
}

// Profile returns the score vector (similarity, identity, coverage,
// e-value) of the hit.
func (r *Record) Profile() []float32 {
	return []float32{
		float32(r.SimilarityPct()),
		float32(r.IdentityPct()),
		float32(r.CoveragePct()),
		float32(r.EValue()),
	}
}

// Evidence wraps one interaction record backing a hit.
type Evidence struct {
	Record evidence.Record
	Valid  bool
}

func NewEvidence(rec evidence.Record) *Evidence {
	return &Evidence{Record: rec, Valid: true}
}
