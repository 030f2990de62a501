package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/internal/homology"
	"github.com/todmy/interolog/pkg/models"
)

var ErrLinkNotFound = errors.New("link not found")

// EvidenceRepository persists evidence records as MITAB lines
type EvidenceRepository interface {
	SaveEvidence(ctx context.Context, records []evidence.Record) error
	// LoadEvidence returns the stored lines in insertion order
	LoadEvidence(ctx context.Context) ([]string, error)
	ClearEvidence(ctx context.Context) error
}

// Link is a persisted candidate link. Snapshot is the display form and
// feeds the hit index; Rows keeps every row with its validity.
type Link struct {
	ID        uuid.UUID
	QueryLow  string
	QueryHigh string
	CreatedBy string
	Snapshot  homology.Snapshot
	Rows      []homology.RowState
	CreatedAt time.Time
}

// LinkRepository persists candidate links and indexes their hit profiles
type LinkRepository interface {
	SaveLink(ctx context.Context, link *Link) error
	GetLink(ctx context.Context, id uuid.UUID) (*Link, error)
	ListLinks(ctx context.Context) ([]*Link, error)
	DeleteLink(ctx context.Context, id uuid.UUID) error
	FindSimilarHits(ctx context.Context, profile []float32, limit int, threshold float64) ([]models.SimilarHit, error)
}

// hitRow is one side of a snapshot row as stored in homology_hits
type hitRow struct {
	Row      int
	Side     string
	Template string
	Profile  []float32
}

func hitRows(snap homology.Snapshot) []hitRow {
	var rows []hitRow
	for i := range snap.Low {
		if i >= len(snap.High) {
			break
		}
		low := homology.NewRecord(snap.Low[i].Data)
		high := homology.NewRecord(snap.High[i].Data)
		rows = append(rows,
			hitRow{Row: i, Side: "low", Template: low.Template(), Profile: finite(low.Profile())},
			hitRow{Row: i, Side: "high", Template: high.Template(), Profile: finite(high.Profile())},
		)
	}
	return rows
}

// finite copies profile with non-finite components, which pgvector
// rejects, replaced by 0
func finite(profile []float32) []float32 {
	out := make([]float32, len(profile))
	for i, v := range profile {
		if !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
			out[i] = v
		}
	}
	return out
}

func evidenceColumns(rec evidence.Record) (a, b, publication, source, method, line string) {
	a, b = rec.Participants()
	return a, b, rec.PublicationID(), rec.SourceName(), rec.DetectionMethod(), evidence.Text(rec)
}

func encodeLink(link *Link) (snapshot, rows []byte, err error) {
	if snapshot, err = json.Marshal(link.Snapshot); err != nil {
		return nil, nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	state := link.Rows
	if state == nil {
		state = []homology.RowState{}
	}
	if rows, err = json.Marshal(state); err != nil {
		return nil, nil, fmt.Errorf("marshal rows: %w", err)
	}
	return snapshot, rows, nil
}

func decodeLink(link *Link, snapshot, rows []byte) error {
	if err := json.Unmarshal(snapshot, &link.Snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if len(rows) > 0 {
		if err := json.Unmarshal(rows, &link.Rows); err != nil {
			return fmt.Errorf("decode rows: %w", err)
		}
	}
	return nil
}
