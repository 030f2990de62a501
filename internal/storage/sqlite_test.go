package storage

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/internal/homology"
)

func nan() float64 { return math.NaN() }

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_EvidenceRoundTrip(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	first := mitabRecord(t, "P1", "P2", "1")
	second := mitabRecord(t, "P3", "P4", "2")

	if err := store.SaveEvidence(ctx, []evidence.Record{first, second}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines, err := store.LoadEvidence(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != first.RawText() || lines[1] != second.RawText() {
		t.Error("expected lines in insertion order")
	}

	if err := store.ClearEvidence(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	lines, err = store.LoadEvidence(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines after clear, got %d", len(lines))
	}
}

func TestSQLiteStore_LinkLifecycle(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	snap := testSnapshot()
	link := &Link{
		QueryLow:  "P1",
		QueryHigh: "P2",
		CreatedBy: "curator@example.org",
		Snapshot:  snap,
		Rows: []homology.RowState{
			{Low: snap.Low[0], High: snap.High[0], Evidence: []bool{true, false}},
			{Low: homology.HitSnapshot{Data: []string{"T3"}}, High: homology.HitSnapshot{Data: []string{"T4"}}},
		},
	}
	if err := store.SaveLink(ctx, link); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := store.GetLink(ctx, link.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.QueryLow != "P1" || got.QueryHigh != "P2" {
		t.Errorf("unexpected queries %s, %s", got.QueryLow, got.QueryHigh)
	}
	if len(got.Snapshot.High) != 1 || got.Snapshot.High[0].Data[0] != "T2" {
		t.Errorf("unexpected snapshot %+v", got.Snapshot)
	}
	if got.CreatedBy != "curator@example.org" {
		t.Errorf("unexpected curator %q", got.CreatedBy)
	}
	if len(got.Rows) != 2 || got.Rows[1].Low.Valid || len(got.Rows[0].Evidence) != 2 || got.Rows[0].Evidence[1] {
		t.Errorf("expected every row with its validity, got %+v", got.Rows)
	}
	if !got.CreatedAt.Equal(link.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", link.CreatedAt, got.CreatedAt)
	}

	// Saving again replaces the snapshot in place.
	link.Snapshot.Visible = false
	if err := store.SaveLink(ctx, link); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	links, err := store.ListLinks(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(links) != 1 || links[0].Snapshot.Visible {
		t.Errorf("expected one hidden link, got %+v", links)
	}

	if err := store.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := store.GetLink(ctx, link.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}

	hits, err := store.FindSimilarHits(ctx, []float32{80, 90, 50, 0.01}, 10, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected hits to be deleted with the link, got %d", len(hits))
	}
}

func TestSQLiteStore_GetLinkNotFound(t *testing.T) {
	store := openTestSQLite(t)

	_, err := store.GetLink(context.Background(), uuid.New())
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestSQLiteStore_FindSimilarHits(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	link := &Link{QueryLow: "P1", QueryHigh: "P2", Snapshot: testSnapshot()}
	if err := store.SaveLink(ctx, link); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Low hit profile: similarity 80, identity 90, coverage 50, evalue 0.01.
	hits, err := store.FindSimilarHits(ctx, []float32{80, 90, 50, 0.01}, 1, 0.5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].LinkID != link.ID.String() || hits[0].Side != "low" || hits[0].Template != "T1" {
		t.Errorf("unexpected hit %+v", hits[0])
	}
	if hits[0].Similarity < 0.999 {
		t.Errorf("expected near-identical similarity, got %v", hits[0].Similarity)
	}
}
