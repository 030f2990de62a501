// Package mitab parses PSI-MITAB interaction evidence lines into records
// usable by the interaction store and the homology support sets.
package mitab

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/pkg/models"
)

// MinColumns is the column count of a MITAB 2.5 line.
const MinColumns = 15

var (
	ErrTooFewColumns     = errors.New("too few columns")
	ErrMissingInteractor = errors.New("missing interactor identifier")
)

const (
	colIDA = iota
	colIDB
	colAltA
	colAltB
	colAliasA
	colAliasB
	colMethod
	colAuthor
	colPublication
	colTaxonA
	colTaxonB
	colType
	colSource
	colInteractionID
	colConfidence
)

// Record is one parsed MITAB line.
type Record struct {
	idA, idB       xref
	altA, altB     []xref
	aliasA, aliasB []xref
	methods        []xref
	author         string
	publications   []xref
	taxonA, taxonB []xref
	types          []xref
	sources        []xref
	interactionIDs []xref
	confidence     []xref

	raw string
}

var _ evidence.Record = (*Record)(nil)

// ParseLine parses one tab-separated MITAB line. Columns beyond the
// fifteenth are ignored.
func ParseLine(line string) (*Record, error) {
	line = strings.TrimRight(line, "\r\n")
	cols := strings.Split(line, "\t")
	if len(cols) < MinColumns {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTooFewColumns, len(cols), MinColumns)
	}

	ids := parseXrefs(cols[colIDA])
	idsB := parseXrefs(cols[colIDB])
	if len(ids) == 0 || len(idsB) == 0 {
		return nil, ErrMissingInteractor
	}

	author := strings.TrimSpace(cols[colAuthor])
	if author == "-" {
		author = ""
	}

	return &Record{
		idA:            ids[0],
		idB:            idsB[0],
		altA:           append(ids[1:], parseXrefs(cols[colAltA])...),
		altB:           append(idsB[1:], parseXrefs(cols[colAltB])...),
		aliasA:         parseXrefs(cols[colAliasA]),
		aliasB:         parseXrefs(cols[colAliasB]),
		methods:        parseXrefs(cols[colMethod]),
		author:         author,
		publications:   parseXrefs(cols[colPublication]),
		taxonA:         parseXrefs(cols[colTaxonA]),
		taxonB:         parseXrefs(cols[colTaxonB]),
		types:          parseXrefs(cols[colType]),
		sources:        parseXrefs(cols[colSource]),
		interactionIDs: parseXrefs(cols[colInteractionID]),
		confidence:     parseXrefs(cols[colConfidence]),
		raw:            line,
	}, nil
}

// Participants returns the primary identifier values of both interactors.
func (r *Record) Participants() (string, string) {
	return r.idA.Value, r.idB.Value
}

// Pair returns the UniProtKB accessions of both interactors, isoform
// suffixes removed.
func (r *Record) Pair() (string, string, bool) {
	a := uniprot(r.idA, r.altA)
	b := uniprot(r.idB, r.altB)
	if a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

func uniprot(primary xref, alt []xref) string {
	for _, x := range append([]xref{primary}, alt...) {
		if strings.EqualFold(x.DB, "uniprotkb") && x.Value != "" {
			acc, _, _ := strings.Cut(x.Value, "-")
			return strings.ToUpper(acc)
		}
	}
	return ""
}

// PublicationID returns the first PubMed reference, or the first
// reference of any kind.
func (r *Record) PublicationID() string {
	for _, p := range r.publications {
		if strings.EqualFold(p.DB, "pubmed") {
			return p.DB + ":" + p.Value
		}
	}
	if len(r.publications) > 0 {
		return r.publications[0].DB + ":" + r.publications[0].Value
	}
	return ""
}

// SourceName returns the lowercase name of the source database.
func (r *Record) SourceName() string {
	if len(r.sources) == 0 {
		return ""
	}
	s := r.sources[0]
	if s.Text != "" {
		return strings.ToLower(s.Text)
	}
	return strings.ToLower(s.Value)
}

func (r *Record) DetectionMethod() string {
	if len(r.methods) == 0 {
		return ""
	}
	return r.methods[0].Value
}

// TaxonIDs returns the distinct taxon ids of both interactors, A first.
func (r *Record) TaxonIDs() []string {
	var ids []string
	for _, t := range append(slices.Clone(r.taxonA), r.taxonB...) {
		if t.Value != "" && !slices.Contains(ids, t.Value) {
			ids = append(ids, t.Value)
		}
	}
	return ids
}

// Equal compares the unordered participant pair, detection method,
// publication, source and interaction types.
func (r *Record) Equal(other evidence.Record) bool {
	o, ok := other.(*Record)
	if !ok || o == nil {
		return false
	}
	if r == o {
		return true
	}

	a1, b1 := r.Participants()
	a2, b2 := o.Participants()
	samePair := (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
	if !samePair {
		return false
	}

	return r.DetectionMethod() == o.DetectionMethod() &&
		r.PublicationID() == o.PublicationID() &&
		r.SourceName() == o.SourceName() &&
		slices.Equal(values(r.types), values(o.types))
}

func (r *Record) RawText() string { return r.raw }

func (r *Record) ClearRawText() { r.raw = "" }

// Clone copies the record. Parsed columns are never modified after
// parsing, so only the struct itself is copied.
func (r *Record) Clone() evidence.Record {
	c := *r
	return &c
}

// DisplayForm returns the record as a models.InteractionEvidence.
func (r *Record) DisplayForm() any {
	ua, ub, _ := r.Pair()
	ev := models.InteractionEvidence{
		InteractorA:     r.idA.String(),
		InteractorB:     r.idB.String(),
		UniprotA:        ua,
		UniprotB:        ub,
		DetectionMethod: r.DetectionMethod(),
		FirstAuthor:     r.author,
		Publication:     r.PublicationID(),
		TaxonA:          values(r.taxonA),
		TaxonB:          values(r.taxonB),
		Source:          r.SourceName(),
		InteractionIDs:  values(r.interactionIDs),
		Confidence:      values(r.confidence),
	}
	if len(r.methods) > 0 {
		ev.DetectionName = r.methods[0].Text
	}
	for _, t := range r.types {
		if t.Text != "" {
			ev.InteractionTypes = append(ev.InteractionTypes, t.Text)
		} else {
			ev.InteractionTypes = append(ev.InteractionTypes, t.Value)
		}
	}
	return ev
}

// String formats the record back into a MITAB 2.5 line.
func (r *Record) String() string {
	author := r.author
	if author == "" {
		author = "-"
	}
	cols := []string{
		r.idA.String(),
		r.idB.String(),
		formatXrefs(r.altA),
		formatXrefs(r.altB),
		formatXrefs(r.aliasA),
		formatXrefs(r.aliasB),
		formatXrefs(r.methods),
		author,
		formatXrefs(r.publications),
		formatXrefs(r.taxonA),
		formatXrefs(r.taxonB),
		formatXrefs(r.types),
		formatXrefs(r.sources),
		formatXrefs(r.interactionIDs),
		formatXrefs(r.confidence),
	}
	return strings.Join(cols, "\t")
}
