package homology

import (
	"iter"

	"github.com/todmy/interolog/internal/evidence"
)

// Row is one position of a support set: the hit on each side of the link
// and the evidence observed between the two templates.
type Row struct {
	Low      *Record
	High     *Record
	Evidence []*Evidence

	// validity of evidence still to be attached, set by FromState
	evidenceState []bool
}

// Hit is one row as seen by consumers.
type Hit struct {
	Low      *Record
	High     *Record
	Evidence []evidence.Record
}

// SupportSet is the homology support of one candidate link. Rows are kept
// whole so a position is always fully present or fully absent.
//
// A SupportSet is not safe for concurrent use.
type SupportSet struct {
	rows    []*Row
	visible bool
}

func NewSupportSet() *SupportSet {
	return &SupportSet{visible: true}
}

// Add appends a row built from the two field vectors with an empty evidence
// group and returns its index.
func (s *SupportSet) Add(lowFields, highFields []string) int {
	s.rows = append(s.rows, &Row{
		Low:  NewRecord(lowFields),
		High: NewRecord(highFields),
	})
	return len(s.rows) - 1
}

// Attach appends evidence to the group of row i. Out of range indices are
// ignored.
func (s *SupportSet) Attach(i int, records ...evidence.Record) {
	if i < 0 || i >= len(s.rows) {
		return
	}
	row := s.rows[i]
	for _, rec := range records {
		ev := NewEvidence(rec)
		if k := len(row.Evidence); k < len(row.evidenceState) {
			ev.Valid = row.evidenceState[k]
		}
		row.Evidence = append(row.Evidence, ev)
	}
}

// Row returns row i, or nil when out of range.
func (s *SupportSet) Row(i int) *Row {
	if i < 0 || i >= len(s.rows) {
		return nil
	}
	return s.rows[i]
}

func (s *SupportSet) Visible() bool { return s.visible }

func (s *SupportSet) SetVisible(v bool) { s.visible = v }

// Remove drops every row and hides the set.
func (s *SupportSet) Remove() {
	s.rows = nil
	s.visible = false
}

// Total returns the number of rows, valid or not.
func (s *SupportSet) Total() int { return len(s.rows) }

// Len returns the number of rows whose low hit is valid.
func (s *SupportSet) Len() int {
	n := 0
	for _, row := range s.rows {
		if row.Low.Valid {
			n++
		}
	}
	return n
}

// Depth is an alias of Len.
func (s *SupportSet) Depth() int { return s.Len() }

func (s *SupportSet) IsEmpty() bool { return s.Len() == 0 }

// Templates returns the templates of the valid hits on each side.
func (s *SupportSet) Templates() (low, high []string) {
	for _, row := range s.rows {
		if row.Low.Valid {
			low = append(low, row.Low.Template())
		}
		if row.High.Valid {
			high = append(high, row.High.Template())
		}
	}
	return low, high
}

// FullTemplates returns the templates of every hit on each side.
func (s *SupportSet) FullTemplates() (low, high []string) {
	for _, row := range s.rows {
		low = append(low, row.Low.Template())
		high = append(high, row.High.Template())
	}
	return low, high
}

// Rows yields the hit pair of every row, valid or not.
func (s *SupportSet) Rows() iter.Seq2[*Record, *Record] {
	return func(yield func(*Record, *Record) bool) {
		for _, row := range s.rows {
			if !yield(row.Low, row.High) {
				return
			}
		}
	}
}

// Hits yields every row with its evidence. With visibleOnly, rows whose
// hits are not both valid are skipped and only valid evidence is listed.
// The set must not be modified while iterating.
func (s *SupportSet) Hits(visibleOnly bool) iter.Seq[Hit] {
	return func(yield func(Hit) bool) {
		for _, row := range s.rows {
			if visibleOnly && !(row.Low.Valid && row.High.Valid) {
				continue
			}
			hit := Hit{Low: row.Low, High: row.High}
			for _, ev := range row.Evidence {
				if visibleOnly && !ev.Valid {
					continue
				}
				hit.Evidence = append(hit.Evidence, ev.Record)
			}
			if !yield(hit) {
				return
			}
		}
	}
}
