package homology

import (
	"errors"
)

var ErrSnapshotShape = errors.New("snapshot low and high rows differ in length")

// HitSnapshot is the serialized form of one hit.
type HitSnapshot struct {
	Data  []string `json:"data"`
	Valid bool     `json:"valid"`
}

// Snapshot is the serialized form of a support set. It lists only the rows
// whose hits are both valid, each with the display form of its valid
// evidence.
type Snapshot struct {
	Low            []HitSnapshot `json:"low"`
	High           []HitSnapshot `json:"high"`
	EvidenceGroups [][]any       `json:"evidence_groups"`
	Visible        bool          `json:"visible"`
}

func (s *SupportSet) Snapshot() Snapshot {
	snap := Snapshot{
		Low:            []HitSnapshot{},
		High:           []HitSnapshot{},
		EvidenceGroups: [][]any{},
		Visible:        s.visible,
	}
	for _, row := range s.rows {
		if !row.Low.Valid || !row.High.Valid {
			continue
		}
		snap.Low = append(snap.Low, HitSnapshot{Data: append([]string(nil), row.Low.Fields...), Valid: true})
		snap.High = append(snap.High, HitSnapshot{Data: append([]string(nil), row.High.Fields...), Valid: true})

		group := []any{}
		for _, ev := range row.Evidence {
			if ev.Valid {
				group = append(group, ev.Record.DisplayForm())
			}
		}
		snap.EvidenceGroups = append(snap.EvidenceGroups, group)
	}
	return snap
}

// FromSnapshot rebuilds a support set from its hits. Evidence groups are
// not restored; every row comes back with an empty group.
func FromSnapshot(snap Snapshot) (*SupportSet, error) {
	if len(snap.Low) != len(snap.High) {
		return nil, ErrSnapshotShape
	}

	s := &SupportSet{visible: snap.Visible}
	for i := range snap.Low {
		low := NewRecord(snap.Low[i].Data)
		low.Valid = snap.Low[i].Valid
		high := NewRecord(snap.High[i].Data)
		high.Valid = snap.High[i].Valid
		s.rows = append(s.rows, &Row{Low: low, High: high})
	}
	return s, nil
}

// RowState is the persisted form of one row. Unlike Snapshot it covers
// invalid rows too, so a later trim with looser criteria can bring them
// back. Evidence holds the validity of each evidence wrapper in attach
// order.
type RowState struct {
	Low      HitSnapshot `json:"low"`
	High     HitSnapshot `json:"high"`
	Evidence []bool      `json:"evidence,omitempty"`
}

// State returns every row of the set, valid or not.
func (s *SupportSet) State() []RowState {
	rows := make([]RowState, 0, len(s.rows))
	for _, row := range s.rows {
		st := RowState{
			Low:  HitSnapshot{Data: append([]string(nil), row.Low.Fields...), Valid: row.Low.Valid},
			High: HitSnapshot{Data: append([]string(nil), row.High.Fields...), Valid: row.High.Valid},
		}
		for _, ev := range row.Evidence {
			st.Evidence = append(st.Evidence, ev.Valid)
		}
		rows = append(rows, st)
	}
	return rows
}

// FromState rebuilds a support set from State. Rows come back with empty
// evidence groups; evidence attached later takes its validity from the
// saved flags, position by position.
func FromState(rows []RowState, visible bool) *SupportSet {
	s := &SupportSet{visible: visible}
	for _, st := range rows {
		low := NewRecord(st.Low.Data)
		low.Valid = st.Low.Valid
		high := NewRecord(st.High.Data)
		high.Valid = st.High.Valid
		s.rows = append(s.rows, &Row{
			Low:           low,
			High:          high,
			evidenceState: append([]bool(nil), st.Evidence...),
		})
	}
	return s
}
