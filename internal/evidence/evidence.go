// Package evidence defines the contract the interaction store and the homology
// support sets consume from a parsed interaction-evidence record.
package evidence

// Record is one parsed interaction observation.
type Record interface {
	// Participants returns the two interactor identifiers the record is
	// stored under. Always present.
	Participants() (a, b string)

	// Pair returns the normalized protein identifiers of the two
	// interactors, or ok=false when either one cannot be resolved.
	Pair() (a, b string, ok bool)

	PublicationID() string

	// SourceName is the lowercase name of the database that reported the record.
	SourceName() string

	// DetectionMethod is the controlled-vocabulary code of the experimental
	// method, e.g. "MI:0018".
	DetectionMethod() string

	TaxonIDs() []string

	// Equal reports content-level equality, independent of identity.
	Equal(other Record) bool

	// RawText is the text the record was parsed from, empty once cleared.
	RawText() string
	ClearRawText()

	// Clone returns an independent copy, raw text included.
	Clone() Record

	// DisplayForm returns a JSON-serializable view of the record.
	DisplayForm() any
	String() string
}

// Text returns the raw text of rec, falling back to its display line when
// the raw text has been cleared.
func Text(rec Record) string {
	if raw := rec.RawText(); raw != "" {
		return raw
	}
	return rec.String()
}
