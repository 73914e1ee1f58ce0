package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderDelivery records a fired reminder that the delivery worker handed off.
type ReminderDelivery struct {
	ID             uuid.UUID `json:"id"`
	JobID          string    `json:"job_id"`
	UserID         uuid.UUID `json:"user_id"`
	SessionID      string    `json:"session_id"`
	SessionTitle   string    `json:"session_title"`
	ScheduledStart time.Time `json:"scheduled_start"`
	FiredAt        time.Time `json:"fired_at"`
	DeliveredAt    time.Time `json:"delivered_at"`
}
