// Package calendar builds "add to calendar" links for class sessions.
package calendar

import (
	"net/url"
	"strings"
	"time"

	"github.com/aura-webinar/classroom/internal/models"
)

const (
	googleBase   = "https://calendar.google.com/calendar/render"
	googleLayout = "20060102T150405Z"
)

// GoogleLink returns a Google Calendar template link for s. ok is false for unscheduled
// sessions.
func GoogleLink(s models.ClassSession) (link string, ok bool) {
	end, ok := s.EndsAt()
	if !ok {
		return "", false
	}
	start := s.ScheduledStart.UTC()
	if !end.After(start) {
		end = start.Add(time.Hour)
	}

	q := make(url.Values)
	q.Set("action", "TEMPLATE")
	q.Set("text", s.Title)
	q.Set("dates", start.Format(googleLayout)+"/"+end.UTC().Format(googleLayout))
	if details := describe(s); details != "" {
		q.Set("details", details)
	}
	if s.JoinURL != "" {
		q.Set("location", s.JoinURL)
	}
	return googleBase + "?" + q.Encode(), true
}

func describe(s models.ClassSession) string {
	var parts []string
	if s.InstructorName != "" {
		parts = append(parts, "Instructor: "+s.InstructorName)
	}
	if s.Description != "" {
		parts = append(parts, s.Description)
	}
	if s.JoinURL != "" {
		parts = append(parts, "Join: "+s.JoinURL)
	}
	return strings.Join(parts, "\n\n")
}
