package interaction

import (
	"encoding/json"
	"strings"
)

// ResultType tags the JSON dump of a store.
const ResultType = "mitabResult"

type envelope struct {
	Type string `json:"type"`
	Data []any  `json:"data"`
}

// String returns the display line of every record, one per line, pair by
// pair.
func (s *Store) String() string {
	var lines []string
	for rec := range s.All() {
		lines = append(lines, rec.String())
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON encodes the store as {"type":"mitabResult","data":[...]}
// with the display form of every record.
func (s *Store) MarshalJSON() ([]byte, error) {
	env := envelope{Type: ResultType, Data: []any{}}
	for rec := range s.All() {
		env.Data = append(env.Data, rec.DisplayForm())
	}
	return json.Marshal(env)
}
