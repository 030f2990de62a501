package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/todmy/interolog/pkg/models"
)

// CuratorSchema creates the curators table.
const CuratorSchema = `
CREATE TABLE IF NOT EXISTS curators (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresRepository implements CuratorRepository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new curator into the database
func (r *PostgresRepository) Create(ctx context.Context, curator *models.Curator) error {
	curator.ID = uuid.New().String()

	query := `
		INSERT INTO curators (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		curator.ID,
		curator.Email,
		curator.PasswordHash,
		curator.CreatedAt,
		curator.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create curator: %w", err)
	}

	return nil
}

// GetByID retrieves a curator by their ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Curator, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM curators
		WHERE id = $1
	`

	curator := &models.Curator{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&curator.ID,
		&curator.Email,
		&curator.PasswordHash,
		&curator.CreatedAt,
		&curator.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCuratorNotFound
		}
		return nil, fmt.Errorf("failed to get curator by ID: %w", err)
	}

	return curator, nil
}

// GetByEmail retrieves a curator by their email address
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Curator, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM curators
		WHERE email = $1
	`

	curator := &models.Curator{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&curator.ID,
		&curator.Email,
		&curator.PasswordHash,
		&curator.CreatedAt,
		&curator.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCuratorNotFound
		}
		return nil, fmt.Errorf("failed to get curator by email: %w", err)
	}

	return curator, nil
}
