package models

import (
	"time"
)

// SessionStatus is the lifecycle status of a class session. It is always derived from the
// session and the current time, never stored.
type SessionStatus string

const (
	StatusNotScheduled SessionStatus = "not_scheduled"
	StatusUpcoming     SessionStatus = "upcoming"
	StatusLive         SessionStatus = "live"
	StatusCompleted    SessionStatus = "completed"
	StatusRecorded     SessionStatus = "recorded"
)

// AllStatuses lists every status in dashboard tab order.
var AllStatuses = []SessionStatus{
	StatusLive,
	StatusUpcoming,
	StatusNotScheduled,
	StatusCompleted,
	StatusRecorded,
}

// ClassSession is a live or demo class as fetched from the session source.
type ClassSession struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	InstructorName  string     `json:"instructor_name,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"` // nil when not scheduled
	DurationMinutes int        `json:"duration_minutes"`
	ReportedLive    bool       `json:"reported_live"`
	HasRecording    bool       `json:"has_recording"`
	JoinURL         string     `json:"join_url,omitempty"`
}

// Scheduled reports whether the session has a start time.
func (s *ClassSession) Scheduled() bool {
	return s.ScheduledStart != nil
}

// EndsAt returns the scheduled end. ok is false for unscheduled sessions.
func (s *ClassSession) EndsAt() (end time.Time, ok bool) {
	if s.ScheduledStart == nil {
		return time.Time{}, false
	}
	return s.ScheduledStart.Add(time.Duration(s.DurationMinutes) * time.Minute), true
}
