package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/pkg/models"
)

// PostgresEvidenceRepository implements EvidenceRepository using PostgreSQL
type PostgresEvidenceRepository struct {
	db *sql.DB
}

// NewPostgresEvidenceRepository creates a new PostgresEvidenceRepository
func NewPostgresEvidenceRepository(db *sql.DB) *PostgresEvidenceRepository {
	return &PostgresEvidenceRepository{db: db}
}

// SaveEvidence inserts records in a single transaction
func (r *PostgresEvidenceRepository) SaveEvidence(ctx context.Context, records []evidence.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evidence (id, participant_a, participant_b, publication, source, detection_method, line)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare evidence insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		a, b, pub, source, method, line := evidenceColumns(rec)
		if _, err := stmt.ExecContext(ctx, uuid.New(), a, b, pub, source, method, line); err != nil {
			return fmt.Errorf("insert evidence %s-%s: %w", a, b, err)
		}
	}

	return tx.Commit()
}

// LoadEvidence returns every stored line in insertion order
func (r *PostgresEvidenceRepository) LoadEvidence(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT line FROM evidence ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// ClearEvidence removes every stored record
func (r *PostgresEvidenceRepository) ClearEvidence(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM evidence`); err != nil {
		return fmt.Errorf("clear evidence: %w", err)
	}
	return nil
}

// PostgresLinkRepository implements LinkRepository using PostgreSQL with pgvector
type PostgresLinkRepository struct {
	db *sql.DB
}

// NewPostgresLinkRepository creates a new PostgresLinkRepository
func NewPostgresLinkRepository(db *sql.DB) *PostgresLinkRepository {
	return &PostgresLinkRepository{db: db}
}

// SaveLink upserts the link snapshot and replaces its hit profiles
func (r *PostgresLinkRepository) SaveLink(ctx context.Context, link *Link) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	snapshot, rows, err := encodeLink(link)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO links (id, query_low, query_high, created_by, snapshot, rows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, rows = EXCLUDED.rows, updated_at = now()
	`, link.ID, link.QueryLow, link.QueryHigh, link.CreatedBy, snapshot, rows, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM homology_hits WHERE link_id = $1`, link.ID); err != nil {
		return fmt.Errorf("delete hits: %w", err)
	}

	for _, h := range hitRows(link.Snapshot) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO homology_hits (link_id, row_index, side, template, profile)
			VALUES ($1, $2, $3, $4, $5)
		`, link.ID, h.Row, h.Side, h.Template, pgvector.NewVector(h.Profile))
		if err != nil {
			return fmt.Errorf("insert hit %d/%s: %w", h.Row, h.Side, err)
		}
	}

	return tx.Commit()
}

// GetLink retrieves a link by its ID
func (r *PostgresLinkRepository) GetLink(ctx context.Context, id uuid.UUID) (*Link, error) {
	query := `
		SELECT id, query_low, query_high, created_by, snapshot, rows, created_at
		FROM links
		WHERE id = $1
	`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

// ListLinks returns every stored link, oldest first
func (r *PostgresLinkRepository) ListLinks(ctx context.Context) ([]*Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, query_low, query_high, created_by, snapshot, rows, created_at
		FROM links
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

// DeleteLink removes a link and, by cascade, its hits
func (r *PostgresLinkRepository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	return err
}

// FindSimilarHits finds stored hits close to profile using pgvector cosine distance
func (r *PostgresLinkRepository) FindSimilarHits(ctx context.Context, profile []float32, limit int, threshold float64) ([]models.SimilarHit, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT link_id, row_index, side, template, 1 - (profile <=> $1) AS similarity
		FROM homology_hits
		WHERE 1 - (profile <=> $1) >= $2
		ORDER BY profile <=> $1
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(finite(profile)), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar hits: %w", err)
	}
	defer rows.Close()

	results := []models.SimilarHit{}
	for rows.Next() {
		var hit models.SimilarHit
		if err := rows.Scan(&hit.LinkID, &hit.Row, &hit.Side, &hit.Template, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar hit: %w", err)
		}
		results = append(results, hit)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*Link, error) {
	link := &Link{}
	var snapshot, rows []byte
	if err := row.Scan(&link.ID, &link.QueryLow, &link.QueryHigh, &link.CreatedBy, &snapshot, &rows, &link.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeLink(link, snapshot, rows); err != nil {
		return nil, err
	}
	return link, nil
}
