// Package sessions classifies class sessions into lifecycle statuses, groups them into
// dashboard tabs and serves them from PostgreSQL.
package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/aura-webinar/classroom/internal/models"
)

// Classify derives the lifecycle status of s at now. Rules are applied in order and the first
// match wins: an external live signal always means Live; an in-progress window without that
// signal is reported as Completed.
func Classify(s models.ClassSession, now time.Time) models.SessionStatus {
	if s.ReportedLive {
		return models.StatusLive
	}
	if s.ScheduledStart == nil {
		return models.StatusNotScheduled
	}
	if now.Before(*s.ScheduledStart) {
		return models.StatusUpcoming
	}
	end, _ := s.EndsAt()
	if !now.Before(end) && s.HasRecording {
		return models.StatusRecorded
	}
	return models.StatusCompleted
}

// DataError reports a session record that cannot be classified. It is collected, never thrown.
type DataError struct {
	SessionID string
	Index     int
	Reason    string
}

func (e *DataError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("session at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("session %q: %s", e.SessionID, e.Reason)
}

// Validate checks the fields classification and card rendering rely on.
func Validate(s models.ClassSession) error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return &DataError{Reason: "missing id"}
	case strings.TrimSpace(s.Title) == "":
		return &DataError{SessionID: s.ID, Reason: "missing title"}
	case s.DurationMinutes < 0:
		return &DataError{SessionID: s.ID, Reason: fmt.Sprintf("negative duration %d", s.DurationMinutes)}
	case s.ScheduledStart != nil && s.ScheduledStart.IsZero():
		return &DataError{SessionID: s.ID, Reason: "zero scheduled start"}
	}
	return nil
}
