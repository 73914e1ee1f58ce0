package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/classroom/internal/models"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// Source supplies class sessions to the dashboard and the reminder engine.
type Source interface {
	List(ctx context.Context) ([]models.ClassSession, error)
	GetByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// Repository handles class session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a class session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectSession = `SELECT s.id, s.title, s.description, s.instructor_name, s.scheduled_start, s.duration_minutes, s.is_live, s.join_url,
	EXISTS (SELECT 1 FROM recordings r WHERE r.session_id = s.id AND r.status = 'completed') AS has_recording
	FROM class_sessions s`

func scanSession(row pgx.Row) (*models.ClassSession, error) {
	var (
		id uuid.UUID
		s  models.ClassSession
	)
	if err := row.Scan(&id, &s.Title, &s.Description, &s.InstructorName, &s.ScheduledStart, &s.DurationMinutes, &s.ReportedLive, &s.JoinURL, &s.HasRecording); err != nil {
		return nil, err
	}
	s.ID = id.String()
	return &s, nil
}

// List returns all sessions, scheduled ones first by start time.
func (r *Repository) List(ctx context.Context) ([]models.ClassSession, error) {
	rows, err := r.pool.Query(ctx, selectSession+` ORDER BY s.scheduled_start ASC NULLS LAST, s.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ClassSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// GetByID returns a session by id, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ClassSession, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	s, err := scanSession(r.pool.QueryRow(ctx, selectSession+` WHERE s.id = $1`, sid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// Create inserts a session and sets its id.
func (r *Repository) Create(ctx context.Context, s *models.ClassSession, createdBy uuid.UUID) error {
	const q = `INSERT INTO class_sessions (title, description, instructor_name, scheduled_start, duration_minutes, join_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, s.Title, s.Description, s.InstructorName, s.ScheduledStart, s.DurationMinutes, s.JoinURL, createdBy).Scan(&id); err != nil {
		return err
	}
	s.ID = id.String()
	return nil
}

// Update rewrites the editable fields. A nil ScheduledStart unschedules (cancels) the session.
func (r *Repository) Update(ctx context.Context, s *models.ClassSession) error {
	sid, err := uuid.Parse(s.ID)
	if err != nil {
		return ErrNotFound
	}
	const q = `UPDATE class_sessions SET title = $1, description = $2, instructor_name = $3, scheduled_start = $4,
		duration_minutes = $5, join_url = $6, updated_at = NOW() WHERE id = $7`
	tag, err := r.pool.Exec(ctx, q, s.Title, s.Description, s.InstructorName, s.ScheduledStart, s.DurationMinutes, s.JoinURL, sid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLive records the external liveness signal.
func (r *Repository) SetLive(ctx context.Context, id string, live bool) error {
	sid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE class_sessions SET is_live = $1, updated_at = $2 WHERE id = $3`, live, time.Now().UTC(), sid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session. Reminders pointing at it become orphans.
func (r *Repository) Delete(ctx context.Context, id string) error {
	sid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM class_sessions WHERE id = $1`, sid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
