package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/internal/similarity"
	"github.com/todmy/interolog/pkg/models"
)

// SQLiteStore implements EvidenceRepository and LinkRepository on a local
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) interolog.db under dataDir and applies
// SQLiteSchema.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "interolog.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveEvidence inserts records in a single transaction.
func (s *SQLiteStore) SaveEvidence(ctx context.Context, records []evidence.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		a, b, pub, source, method, line := evidenceColumns(rec)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evidence (id, participant_a, participant_b, publication, source, detection_method, line) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), a, b, pub, source, method, line,
		)
		if err != nil {
			return fmt.Errorf("insert evidence %s-%s: %w", a, b, err)
		}
	}

	return tx.Commit()
}

// LoadEvidence returns every stored line in insertion order.
func (s *SQLiteStore) LoadEvidence(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT line FROM evidence ORDER BY seq`)
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
	return lines, rows.Err()
}

// ClearEvidence removes every stored record.
func (s *SQLiteStore) ClearEvidence(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM evidence`); err != nil {
		return fmt.Errorf("clear evidence: %w", err)
	}
	return nil
}

// SaveLink upserts the link snapshot and replaces its hit profiles.
func (s *SQLiteStore) SaveLink(ctx context.Context, link *Link) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO links (id, query_low, query_high, created_by, snapshot, rows, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, rows = excluded.rows, updated_at = datetime('now')`,
		link.ID.String(), link.QueryLow, link.QueryHigh, link.CreatedBy, string(snapshot), string(rows), link.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM homology_hits WHERE link_id = ?`, link.ID.String()); err != nil {
		return fmt.Errorf("delete hits: %w", err)
	}

	for _, h := range hitRows(link.Snapshot) {
		profile, err := json.Marshal(h.Profile)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO homology_hits (link_id, row_index, side, template, profile) VALUES (?, ?, ?, ?, ?)`,
			link.ID.String(), h.Row, h.Side, h.Template, string(profile),
		)
		if err != nil {
			return fmt.Errorf("insert hit %d/%s: %w", h.Row, h.Side, err)
		}
	}

	return tx.Commit()
}

// GetLink retrieves a link by its ID.
func (s *SQLiteStore) GetLink(ctx context.Context, id uuid.UUID) (*Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query_low, query_high, created_by, snapshot, rows, created_at FROM links WHERE id = ?`,
		id.String(),
	)
	link, err := scanSQLiteLink(row)
	if err == sql.ErrNoRows {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

// ListLinks returns every stored link, oldest first.
func (s *SQLiteStore) ListLinks(ctx context.Context) ([]*Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_low, query_high, created_by, snapshot, rows, created_at FROM links ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteLink removes a link and, by cascade, its hits.
func (s *SQLiteStore) DeleteLink(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id.String())
	return err
}

// FindSimilarHits ranks every stored hit profile against profile by cosine
// similarity.
func (s *SQLiteStore) FindSimilarHits(ctx context.Context, profile []float32, limit int, threshold float64) ([]models.SimilarHit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT link_id, row_index, side, template, profile FROM homology_hits`)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	hits := make(map[string]models.SimilarHit)
	var candidates []similarity.Candidate
	for rows.Next() {
		var hit models.SimilarHit
		var raw string
		if err := rows.Scan(&hit.LinkID, &hit.Row, &hit.Side, &hit.Template, &raw); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		var p []float32
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		key := hit.LinkID + "/" + strconv.Itoa(hit.Row) + "/" + hit.Side
		hits[key] = hit
		candidates = append(candidates, similarity.Candidate{Key: key, Profile: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := []models.SimilarHit{}
	for _, m := range similarity.Rank(finite(profile), candidates, threshold, limit) {
		hit := hits[m.Key]
		hit.Similarity = m.Similarity
		results = append(results, hit)
	}
	return results, nil
}

func scanSQLiteLink(row rowScanner) (*Link, error) {
	link := &Link{}
	var id, snapshot, rows, created string
	if err := row.Scan(&id, &link.QueryLow, &link.QueryHigh, &link.CreatedBy, &snapshot, &rows, &created); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse link id: %w", err)
	}
	link.ID = parsed

	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		link.CreatedAt = t
	}
	if err := decodeLink(link, []byte(snapshot), []byte(rows)); err != nil {
		return nil, err
	}
	return link, nil
}
