// Package deliveries records the reminders handed to users and serves their notification history.
package deliveries

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/classroom/internal/models"
)

// DefaultLimit caps a history page.
const DefaultLimit = 50

// Repository handles reminder_deliveries persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a deliveries repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a delivery. Re-processing the same job is a no-op; inserted is false then.
func (r *Repository) Insert(ctx context.Context, d *models.ReminderDelivery) (inserted bool, err error) {
	const q = `INSERT INTO reminder_deliveries (job_id, user_id, session_id, session_title, scheduled_start, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, d.JobID, d.UserID, d.SessionID, d.SessionTitle, d.ScheduledStart, d.FiredAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser returns a user's deliveries, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReminderDelivery, error) {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	const q = `SELECT id, job_id, user_id, session_id, session_title, scheduled_start, fired_at, delivered_at
		FROM reminder_deliveries
		WHERE user_id = $1
		ORDER BY delivered_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.ReminderDelivery, 0)
	for rows.Next() {
		var d models.ReminderDelivery
		if err := rows.Scan(&d.ID, &d.JobID, &d.UserID, &d.SessionID, &d.SessionTitle, &d.ScheduledStart, &d.FiredAt, &d.DeliveredAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
