package models

import (
	"time"
)

// Reminder is a user's request to be notified LeadMinutes before a session starts.
// There is at most one reminder per session; setting a new one replaces the old.
type Reminder struct {
	SessionID      string     `json:"session_id"`
	SessionTitle   string     `json:"session_title"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	LeadMinutes    int        `json:"lead_minutes"`
	TriggerAt      time.Time  `json:"trigger_at"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	FiredAt        *time.Time `json:"fired_at,omitempty"`
}

// TriggerFor returns start minus leadMinutes.
func TriggerFor(start time.Time, leadMinutes int) time.Time {
	return start.Add(-time.Duration(leadMinutes) * time.Minute)
}

// Due reports whether an active reminder should fire at now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Active && !r.TriggerAt.After(now)
}
