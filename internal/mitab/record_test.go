package mitab

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/todmy/interolog/pkg/models"
)

func line(a, b, method, pub, source string) string {
	cols := []string{
		"uniprotkb:" + a,
		"uniprotkb:" + b,
		"intact:EBI-1|intact:EBI-2",
		"-",
		"psi-mi:" + strings.ToLower(a) + "_human(display_short)",
		"-",
		`psi-mi:"` + method + `"(two hybrid)`,
		"Smith et al. (2004)",
		"pubmed:" + pub + "|imex:IM-1",
		"taxid:9606(human)",
		"taxid:10090(mouse)",
		`psi-mi:"MI:0915"(physical association)`,
		`psi-mi:"MI:0469"(` + source + `)`,
		"intact:EBI-99",
		"intact-miscore:0.56",
	}
	return strings.Join(cols, "\t")
}

func TestParseLine(t *testing.T) {
	raw := line("P04637", "Q00987-2", "MI:0018", "10831611", "IntAct")
	rec, err := ParseLine(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	a, b := rec.Participants()
	if a != "P04637" || b != "Q00987-2" {
		t.Errorf("unexpected participants %s, %s", a, b)
	}

	ua, ub, ok := rec.Pair()
	if !ok || ua != "P04637" || ub != "Q00987" {
		t.Errorf("unexpected pair %s, %s, %v", ua, ub, ok)
	}

	if got := rec.DetectionMethod(); got != "MI:0018" {
		t.Errorf("expected detection method MI:0018, got %s", got)
	}
	if got := rec.PublicationID(); got != "pubmed:10831611" {
		t.Errorf("expected pubmed:10831611, got %s", got)
	}
	if got := rec.SourceName(); got != "intact" {
		t.Errorf("expected source intact, got %s", got)
	}

	taxa := rec.TaxonIDs()
	if len(taxa) != 2 || taxa[0] != "9606" || taxa[1] != "10090" {
		t.Errorf("unexpected taxon ids %v", taxa)
	}

	if rec.RawText() != raw {
		t.Error("expected raw text to be retained")
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"too few columns", "uniprotkb:P1\tuniprotkb:P2", ErrTooFewColumns},
		{"missing interactor", "-" + strings.Repeat("\t-", MinColumns-1), ErrMissingInteractor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRecord_PairWithoutUniprot(t *testing.T) {
	raw := strings.Replace(line("P04637", "Q00987", "MI:0018", "1", "IntAct"), "uniprotkb:Q00987", "chebi:CHEBI:15377", 1)
	rec, err := ParseLine(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, _, ok := rec.Pair(); ok {
		t.Error("expected no resolvable pair for a small-molecule interactor")
	}
}

func TestRecord_Equal(t *testing.T) {
	base, _ := ParseLine(line("P1", "P2", "MI:0018", "1", "IntAct"))
	swapped, _ := ParseLine(line("P2", "P1", "MI:0018", "1", "IntAct"))
	otherMethod, _ := ParseLine(line("P1", "P2", "MI:0019", "1", "IntAct"))
	otherPub, _ := ParseLine(line("P1", "P2", "MI:0018", "2", "IntAct"))
	otherSource, _ := ParseLine(line("P1", "P2", "MI:0018", "1", "MINT"))

	if !base.Equal(swapped) {
		t.Error("expected records with swapped participants to be equal")
	}
	for _, other := range []*Record{otherMethod, otherPub, otherSource} {
		if base.Equal(other) {
			t.Errorf("expected %q to differ from base", other.String())
		}
	}
}

func TestRecord_StringRoundTrip(t *testing.T) {
	rec, _ := ParseLine(line("P1", "P2", "MI:0018", "1", "IntAct"))
	again, err := ParseLine(rec.String())
	if err != nil {
		t.Fatalf("expected formatted line to parse, got %v", err)
	}
	if !rec.Equal(again) {
		t.Errorf("expected formatted line to parse into an equal record:\n%s", rec.String())
	}
}

func TestRecord_ClearRawText(t *testing.T) {
	rec, _ := ParseLine(line("P1", "P2", "MI:0018", "1", "IntAct"))
	rec.ClearRawText()
	if rec.RawText() != "" {
		t.Error("expected raw text to be cleared")
	}
	if rec.String() == "" {
		t.Error("expected display line to survive clearing raw text")
	}
}

func TestRecord_DisplayForm(t *testing.T) {
	rec, _ := ParseLine(line("P1", "P2", "MI:0018", "1", "IntAct"))
	ev, ok := rec.DisplayForm().(models.InteractionEvidence)
	if !ok {
		t.Fatalf("expected models.InteractionEvidence, got %T", rec.DisplayForm())
	}
	if ev.DetectionName != "two hybrid" {
		t.Errorf("expected detection name, got %q", ev.DetectionName)
	}
	if len(ev.InteractionTypes) != 1 || ev.InteractionTypes[0] != "physical association" {
		t.Errorf("unexpected interaction types %v", ev.InteractionTypes)
	}
}

func TestParseReader(t *testing.T) {
	input := strings.Join([]string{
		"#ID(s) interactor A\tID(s) interactor B",
		line("P1", "P2", "MI:0018", "1", "IntAct"),
		"",
		"garbage",
		line("P2", "P3", "MI:0018", "1", "IntAct"),
	}, "\n")

	records, failures, err := ParseReader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
	if len(failures) != 1 || failures[0].Line != 4 {
		t.Fatalf("expected one failure on line 4, got %v", failures)
	}
	if !errors.Is(failures[0], ErrTooFewColumns) {
		t.Errorf("expected ErrTooFewColumns, got %v", failures[0].Err)
	}
}
