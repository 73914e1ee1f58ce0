package recordings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/classroom/internal/models"
)

// ErrNotFound is returned when a session has no usable recording.
var ErrNotFound = errors.New("recording not found")

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a recording. rec.ID must be set; the S3 key is derived from it.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, session_id, s3_key, duration_seconds, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rec.ID, rec.SessionID, rec.S3Key, rec.DurationSeconds, rec.Status).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// LatestCompleted returns the newest completed recording of a session, or ErrNotFound.
func (r *Repository) LatestCompleted(ctx context.Context, sessionID uuid.UUID) (*models.Recording, error) {
	const q = `SELECT id, session_id, s3_key, duration_seconds, status, created_at, updated_at
		FROM recordings WHERE session_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`
	var rec models.Recording
	err := r.pool.QueryRow(ctx, q, sessionID, models.RecordingStatusCompleted).
		Scan(&rec.ID, &rec.SessionID, &rec.S3Key, &rec.DurationSeconds, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
