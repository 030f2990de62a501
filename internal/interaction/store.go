// Package interaction holds interaction evidence indexed by unordered
// interactor pair, with deduplication and graph extraction.
package interaction

import (
	"fmt"
	"iter"

	"github.com/todmy/interolog/internal/evidence"
)

// PairKey is an unordered identifier pair, stored with A <= B.
type PairKey struct {
	A string
	B string
}

// NewPairKey orders a and b lexicographically.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func (k PairKey) String() string { return k.A + "-" + k.B }

// Has reports whether id is one of the two identifiers.
func (k PairKey) Has(id string) bool { return k.A == id || k.B == id }

// PairEntry is one stored pair with its evidence.
type PairEntry struct {
	A        string
	B        string
	Evidence []evidence.Record
}

// PublicationConflict describes a publication reported by two sources.
type PublicationConflict struct {
	PublicationID string `json:"publication_id"`
	KnownSource   string `json:"known_source"`
	Source        string `json:"source"`
}

func (c *PublicationConflict) Error() string {
	return fmt.Sprintf("publication %s already reported by %s, got %s", c.PublicationID, c.KnownSource, c.Source)
}

// Store indexes evidence records by the unordered pair of their
// participants. Within a pair no two records are Equal.
//
// A Store has a single writer. Callers sharing a Store across goroutines
// must serialize Add, Merge, FlushRawText and Clear against every other
// call. Iterators are live views and the Store must not be modified while
// one is in progress.
type Store struct {
	pairs        map[PairKey][]evidence.Record
	order        []PairKey
	publications map[string]string
	dropRawText  bool
}

func NewStore() *Store {
	return &Store{
		pairs:        make(map[PairKey][]evidence.Record),
		publications: make(map[string]string),
	}
}

// Add stores each record under its participant pair unless an Equal
// record is already stored there. It returns the number of records added.
func (s *Store) Add(records ...evidence.Record) int {
	added := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		a, b := rec.Participants()
		key := NewPairKey(a, b)

		list, ok := s.pairs[key]
		if containsEqual(list, rec) {
			continue
		}
		if !ok {
			s.order = append(s.order, key)
		}

		if s.dropRawText {
			rec.ClearRawText()
		}
		s.pairs[key] = append(list, rec)
		added++
	}
	return added
}

func containsEqual(list []evidence.Record, rec evidence.Record) bool {
	for _, existing := range list {
		if existing.Equal(rec) {
			return true
		}
	}
	return false
}

// Merge adds every record of other. Merging the same store twice has the
// same effect as merging it once.
func (s *Store) Merge(other *Store) int {
	if other == nil || other == s {
		return 0
	}
	added := 0
	for _, key := range other.order {
		added += s.Add(other.pairs[key]...)
	}
	return added
}

// CheckPublication registers the publication of rec with its source. A
// publication already registered under a different source is reported as
// a conflict and rejected. The registry does not affect Add.
func (s *Store) CheckPublication(rec evidence.Record) (bool, *PublicationConflict) {
	pub := rec.PublicationID()
	source := rec.SourceName()

	known, ok := s.publications[pub]
	if !ok {
		s.publications[pub] = source
		return true, nil
	}
	if known == source {
		return true, nil
	}
	return false, &PublicationConflict{PublicationID: pub, KnownSource: known, Source: source}
}

// Has reports whether id participates in any stored pair.
func (s *Store) Has(id string) bool {
	for _, key := range s.order {
		if key.Has(id) {
			return true
		}
	}
	return false
}

// Contains reports whether a record Equal to rec is stored.
func (s *Store) Contains(rec evidence.Record) bool {
	a, b := rec.Participants()
	return containsEqual(s.pairs[NewPairKey(a, b)], rec)
}

func (s *Store) HasPair(a, b string) bool {
	_, ok := s.pairs[NewPairKey(a, b)]
	return ok
}

// Get returns the evidence of every pair id participates in, pairs in
// insertion order.
func (s *Store) Get(id string) []evidence.Record {
	out := []evidence.Record{}
	for _, key := range s.order {
		if key.Has(id) {
			out = append(out, s.pairs[key]...)
		}
	}
	return out
}

// GetPair returns the evidence stored for a and b in either order.
func (s *Store) GetPair(a, b string) []evidence.Record {
	list := s.pairs[NewPairKey(a, b)]
	return append([]evidence.Record{}, list...)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	n := 0
	for _, list := range s.pairs {
		n += len(list)
	}
	return n
}

// PairCount returns the number of stored pairs.
func (s *Store) PairCount() int { return len(s.order) }

// All yields every stored record, pair by pair.
func (s *Store) All() iter.Seq[evidence.Record] {
	return func(yield func(evidence.Record) bool) {
		for _, key := range s.order {
			for _, rec := range s.pairs[key] {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// Pairs yields one entry per stored pair.
func (s *Store) Pairs() iter.Seq[PairEntry] {
	return func(yield func(PairEntry) bool) {
		for _, key := range s.order {
			if !yield(PairEntry{A: key.A, B: key.B, Evidence: s.pairs[key]}) {
				return
			}
		}
	}
}

// PartnersOf maps every identifier to the identifiers it is paired with.
func (s *Store) PartnersOf() map[string]map[string]struct{} {
	partners := make(map[string]map[string]struct{})
	link := func(a, b string) {
		set, ok := partners[a]
		if !ok {
			set = make(map[string]struct{})
			partners[a] = set
		}
		set[b] = struct{}{}
	}
	for _, key := range s.order {
		link(key.A, key.B)
		link(key.B, key.A)
	}
	return partners
}

// PairedLines maps both orderings of every pair to the same slice of the
// textual forms of its evidence.
func (s *Store) PairedLines() map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	put := func(a, b string, lines []string) {
		inner, ok := out[a]
		if !ok {
			inner = make(map[string][]string)
			out[a] = inner
		}
		inner[b] = lines
	}
	for _, key := range s.order {
		list := s.pairs[key]
		lines := make([]string, 0, len(list))
		for _, rec := range list {
			lines = append(lines, evidence.Text(rec))
		}
		put(key.A, key.B, lines)
		put(key.B, key.A, lines)
	}
	return out
}

// Filter returns a new store holding copies of the records whose
// normalized pair includes one of ids, together with the records accepted
// by pred. Either criterion may be omitted with an empty ids or a nil pred.
// Flushing the raw text of the result leaves s untouched.
func (s *Store) Filter(ids []string, pred func(evidence.Record) bool) *Store {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := NewStore()
	out.dropRawText = s.dropRawText
	for rec := range s.All() {
		keep := false
		if len(wanted) > 0 {
			if a, b, ok := rec.Pair(); ok {
				_, hasA := wanted[a]
				_, hasB := wanted[b]
				keep = hasA || hasB
			}
		}
		if !keep && pred != nil {
			keep = pred(rec)
		}
		if keep {
			out.Add(rec.Clone())
		}
	}
	return out
}

// FlushRawText clears the raw text of every stored record and of every
// record added from now on.
func (s *Store) FlushRawText() {
	s.dropRawText = true
	for rec := range s.All() {
		rec.ClearRawText()
	}
}

// RetainsRawText reports whether FlushRawText has not been called.
func (s *Store) RetainsRawText() bool { return !s.dropRawText }

// Clear drops every pair and the publication registry. Slices returned
// earlier are not affected.
func (s *Store) Clear() {
	s.pairs = make(map[PairKey][]evidence.Record)
	s.order = nil
	s.publications = make(map[string]string)
}
