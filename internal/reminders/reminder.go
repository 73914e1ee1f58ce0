package reminders

import (
	"time"

	"github.com/aura-webinar/classroom/internal/models"
)

// DefaultLeadMinutes is the lead time used when the user does not pick one.
const DefaultLeadMinutes = 15

// NewReminder builds an active reminder for session firing leadMinutes before it starts.
// Sessions without a start time, or that have already started, cannot take a reminder.
func NewReminder(session models.ClassSession, leadMinutes int, now time.Time) (models.Reminder, error) {
	if session.ScheduledStart == nil {
		return models.Reminder{}, &ValidationError{Field: "scheduled_start", Reason: "session is not scheduled"}
	}
	if !now.Before(*session.ScheduledStart) {
		return models.Reminder{}, &ValidationError{Field: "scheduled_start", Reason: "session has already started"}
	}
	start := session.ScheduledStart.UTC()
	r := models.Reminder{
		SessionID:      session.ID,
		SessionTitle:   session.Title,
		ScheduledStart: start,
		LeadMinutes:    leadMinutes,
		TriggerAt:      models.TriggerFor(start, leadMinutes),
		Active:         true,
		CreatedAt:      now.UTC(),
	}
	if err := Validate(r); err != nil {
		return models.Reminder{}, err
	}
	return r, nil
}

// Validate checks the reminder invariants: a session id, a positive lead time and a trigger
// strictly before the session start.
func Validate(r models.Reminder) error {
	switch {
	case r.SessionID == "":
		return &ValidationError{Field: "session_id", Reason: "is required"}
	case r.LeadMinutes <= 0:
		return &ValidationError{Field: "lead_minutes", Reason: "must be a positive number of minutes"}
	case !r.TriggerAt.Before(r.ScheduledStart):
		return &ValidationError{Field: "trigger_at", Reason: "must be before the session start"}
	}
	return nil
}

// Index maps sessions by id. The result is never nil, so callers can tell "no sessions" apart
// from "sessions unknown" (a nil map).
func Index(list []models.ClassSession) map[string]models.ClassSession {
	out := make(map[string]models.ClassSession, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}

// retime moves r to the session's current start and title. changed is false when nothing moved.
func retime(r models.Reminder, s models.ClassSession) (models.Reminder, bool) {
	changed := false
	if s.Title != "" && s.Title != r.SessionTitle {
		r.SessionTitle = s.Title
		changed = true
	}
	if s.ScheduledStart != nil && !s.ScheduledStart.Equal(r.ScheduledStart) {
		r.ScheduledStart = s.ScheduledStart.UTC()
		r.TriggerAt = models.TriggerFor(r.ScheduledStart, r.LeadMinutes)
		changed = true
	}
	return r, changed
}

// orphaned reports whether r's session is gone or no longer scheduled.
func orphaned(r models.Reminder, known map[string]models.ClassSession) bool {
	s, ok := known[r.SessionID]
	return !ok || !s.Scheduled()
}
